// Package graphql serves graphql-go schemas over HTTP.
package graphql

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/response"
)

const maxQueryBytes = 1 << 20

// NewSchema creates a new GraphQL schema from a provided RootQuery
func NewSchema(query *graphql.Object) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: query,
	})
}

// Request is the standard GraphQL-over-HTTP body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes POSTed JSON requests against schema with the request
// context, so resolvers see the authenticated user.
func Handler(schema graphql.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		var req Request
		if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBytes)).Decode(&req); err != nil || req.Query == "" {
			response.Error(w, http.StatusBadRequest, "Body must be a JSON object with a query.")
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		if result.HasErrors() {
			logger.WithCtx(r.Context()).Info("graphql errors", "errors", len(result.Errors))
		}
		response.JSON(w, http.StatusOK, result)
	}
}
