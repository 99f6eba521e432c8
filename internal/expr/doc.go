// Package expr compiles HCL expressions into adapter callbacks. It is the
// script evaluator plugged into component.Environment: value and match
// expressions see the propagated value as `input`, the properties of the
// watching instance as `props`, and the instance itself as `this`. Go values
// cross into expressions as cty values and come back as plain Go values.
package expr
