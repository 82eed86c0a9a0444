// Package schema parses and validates the free-form fields of the LLM Engine form.
//
// Form inputs are held as strings until a run needs them. Every numeric field has an
// explicit parse function returning the typed value or a *ValidationError; nothing here
// panics on user input.
//
// Basic usage:
//
//	temp, err := schema.ParseTemperature(cfg.Temperature.String())
//	if err != nil {
//	    // err is a *schema.ValidationError carrying the field name and reason
//	}
//
// ValidateConfig checks every field at once and returns an *AggregateError, which is what
// a form needs to mark each input as valid or invalid:
//
//	for _, st := range schema.FieldStates(cfg) {
//	    fmt.Println(st.Field, st.Valid, st.Message)
//	}
package schema
