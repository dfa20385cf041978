package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Model is the rendered query model. Empty when the pipeline failed
	// before a model existed.
	Model string `json:"model,omitempty"`

	// SQL is the compiled statement.
	SQL string `json:"sql,omitempty"`

	// Args are the statement's bound arguments.
	Args []any `json:"args,omitempty"`

	// Token is the generation pass token.
	Token string `json:"token,omitempty"`

	// Value is the query result.
	Value any `json:"value"`

	// Err is the execution error, if any. Expected errors still set it.
	Err error `json:"-"`

	// Errors lists the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
