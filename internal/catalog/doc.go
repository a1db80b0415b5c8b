// Package catalog defines the FedRAMP 20x Key Security Indicator data model and
// ships the embedded base catalog together with its enhancement mapping.
//
// It exposes LoadCatalog and LoadEnhancements for reading the embedded YAML
// sources, MergeEnhancements for overlaying reference data onto the base tree,
// and Validate for checking the structural invariants every persisted tree must
// satisfy.
package catalog
