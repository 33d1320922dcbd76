// Package migrations holds the schema migrations. Each file registers its
// migrations from init(); the CLI imports this package for that side effect.
package migrations
