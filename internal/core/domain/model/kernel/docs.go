// Package kernel holds the value objects shared by every aggregate: identifiers,
// money in minor units and geographic points.
//
// All values are immutable. Zero values are invalid and fail Validate, so
// constructors are the only way to obtain a usable value.
package kernel
