package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the mark service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	markType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mark",
		Fields: graphql.Fields{
			"key":        &graphql.Field{Type: graphql.String},
			"coordinate": &graphql.Field{Type: coordinateType},
			"message":    &graphql.Field{Type: graphql.String},
			"distance":   &graphql.Field{Type: graphql.Float},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch m := p.Source.(type) {
					case domain.Mark:
						return m.CreatedAt.Format(time.RFC3339), nil
					case *domain.Mark:
						return m.CreatedAt.Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"marks": &graphql.Field{
				Type:        graphql.NewList(markType),
				Description: "Every mark, oldest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Marks.List(p.Context)
				},
			},
			"mark": &graphql.Field{
				Type:        markType,
				Description: "Get a mark by key",
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Marks.GetByKey(p.Context, p.Args["key"].(string))
				},
			},
			"marksNear": &graphql.Field{
				Type:        graphql.NewList(markType),
				Description: "Marks within radius meters of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.Coordinate{
						Latitude:  p.Args["lat"].(float64),
						Longitude: p.Args["lon"].(float64),
					}
					return deps.Marks.Nearby(p.Context, center, p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
			"marksInRegion": &graphql.Field{
				Type:        graphql.NewList(markType),
				Description: "Marks visible in a map region",
				Args: graphql.FieldConfigArgument{
					"latitude":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"latitudeDelta":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitudeDelta": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"limit":          &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 200},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r := domain.Region{
						Latitude:       p.Args["latitude"].(float64),
						Longitude:      p.Args["longitude"].(float64),
						LatitudeDelta:  p.Args["latitudeDelta"].(float64),
						LongitudeDelta: p.Args["longitudeDelta"].(float64),
					}
					return deps.Marks.InRegion(p.Context, r, p.Args["limit"].(int))
				},
			},
			"markCount": &graphql.Field{
				Type:        graphql.Int,
				Description: "Number of stored marks",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Marks.Count(p.Context)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createMark": &graphql.Field{
				Type:        markType,
				Description: "Store a new mark",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"message":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					c := domain.Coordinate{
						Latitude:  p.Args["latitude"].(float64),
						Longitude: p.Args["longitude"].(float64),
					}
					return deps.Marks.Create(p.Context, c, p.Args["message"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
