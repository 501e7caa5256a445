// Package validation validates configuration structs and inbound registry
// payloads.
//
// Struct tags use go-playground/validator:
//
//	type PeeringConfig struct {
//	    Mode string `validate:"oneof=static reactive"`
//	}
//	err := validation.Validate(cfg)
//
// Handlers collect field errors programmatically:
//
//	v := validation.New()
//	v.Required("app", inst.App).OneOf("status", string(inst.Status), statuses)
//	if err := v.Validate(); err != nil { ... }
package validation
