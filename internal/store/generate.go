package store

// This file documents code generation for the store package.
//
// To regenerate the schema snapshot and the sqlc query layer:
//   go generate ./internal/store

//go:generate sh -c "cd ../.. && go run internal/store/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/store/sqlc/sqlc.yaml"
