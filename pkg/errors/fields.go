package errors

import (
	stdErrors "errors"
)

// LogFields flattens err into structured log fields: its code, the wrapped
// chain from outermost to root and, where the code allows it, the details.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	code := CodeInternal
	fields := map[string]any{}
	if typed := As(err); typed != nil {
		code = typed.Code()
		if MetadataFor(code).DetailsAllowed && typed.Details() != nil {
			fields["error_details"] = typed.Details()
		}
	}
	fields["error_code"] = string(code)

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	if len(chain) > 1 {
		fields["error_root"] = chain[len(chain)-1]
	}
	return fields
}
