// Package paths compiles the path aliases of a TypeScript project
// configuration and decides, for one import specifier, which mapping claims
// it and what the resolver should look up instead.
//
// Only two pattern shapes exist: an exact alias ("@app") and an alias with a
// single wildcard ("@app/*"). Mappings are tried in the order they are
// declared and the first match wins. Targets that only exist for the type
// checker (declaration files, @types packages) never take part.
package paths
