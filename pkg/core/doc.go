// Package core defines the shared language of b2genn.
//
// This package contains:
//   - The closed variable sum type (ArrayVariable, DynamicArrayVariable,
//     AttributeVariable, Constant) and code object namespaces
//   - The closed action sum type replayed into the runner
//   - The network object model handed over by the front-end
//   - Model descriptors consumed by the templates
//   - Error types shared across the pipeline
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
