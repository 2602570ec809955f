// Package openapi builds the OpenAPI 3.1 document describing the token
// lifecycle API. The document is static: the API surface does not depend on
// runtime state, so the spec is assembled once and served as-is.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI 3.1 spec for the token API.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Keymint API",
			Description: "Personal access token lifecycle: issue, list, inspect, and revoke scoped bearer credentials.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "opaque",
		},
	}
	doc.Components.SecuritySchemes["apiToken"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Token",
		},
	}

	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
		{"apiToken": {}},
	}

	doc.Components.Schemas["AccessToken"] = accessTokenSchema()
	doc.Components.Schemas["IssuedTokenResponse"] = issuedTokenSchema()
	doc.Components.Schemas["TokenListResponse"] = tokenListSchema()
	doc.Components.Schemas["CreateTokenRequest"] = createTokenRequestSchema()
	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()

	doc.Paths = openapi3.NewPaths()

	doc.Paths.Set("/api/v1/token", &openapi3.PathItem{
		Get:    listTokensOperation(),
		Post:   createTokenOperation(),
		Delete: revokeAllOperation(),
	})
	doc.Paths.Set("/api/v1/token/{tokenID}", &openapi3.PathItem{
		Get:        getTokenOperation(),
		Delete:     revokeTokenOperation(),
		Parameters: tokenIDPathParameters(),
	})
	doc.Paths.Set("/api/v1/whoami", &openapi3.PathItem{
		Get: whoamiOperation(),
	})
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: healthOperation("healthz", "Liveness check", "Always returns 200 while the process is running."),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: healthOperation("readyz", "Readiness check", "Returns 200 when the backing store answers a ping, 503 otherwise."),
	})

	return doc
}

// ─── Component Schemas ──────────────────────────────────────────────────────

func accessTokenSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "Metadata for an issued token. The secret is never included.",
			Properties: openapi3.Schemas{
				"id": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Public token identifier (km_ prefix followed by 24 hex characters).",
					},
				},
				"owner_id": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Owner the token acts on behalf of.",
					},
				},
				"name": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Human-readable label chosen at issuance.",
					},
				},
				"scopes": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"array"},
						Description: "Granted scopes. \"*\" grants everything; \"a.*\" grants the a. subtree.",
						Items:       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				},
				"created_at": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
				},
				"last_used_at": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Format:      "date-time",
						Nullable:    true,
						Description: "Last successful authentication with this token, null if never used.",
					},
				},
			},
		},
	}
}

func issuedTokenSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "Issuance result. The credential appears here exactly once and cannot be retrieved again.",
			Properties: openapi3.Schemas{
				"token": openapi3.NewSchemaRef("#/components/schemas/AccessToken", nil),
				"credential": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Full bearer credential in the form <id>.<secret>. Store it now; only its hash is kept server-side.",
					},
				},
			},
		},
	}
}

func tokenListSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef("#/components/schemas/AccessToken", nil),
					},
				},
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"},
				},
			},
		},
	}
}

func createTokenRequestSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"name": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"string"},
						Description: "Human-readable label for the token.",
					},
				},
				"scopes": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"array"},
						Description: "Scopes to grant. Omitted or empty defaults to [\"*\"].",
						Items:       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				},
			},
			Required: []string{"name"},
		},
	}
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
}

// ─── Operation Builders ─────────────────────────────────────────────────────

func listTokensOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "List tokens",
		Description: "List the calling owner's tokens in creation order. Requires the tokens.read scope.",
		OperationID: "list_tokens",
		Responses: newResponses(
			"200", "The owner's tokens",
			openapi3.NewSchemaRef("#/components/schemas/TokenListResponse", nil),
		),
	}
}

func createTokenOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "Issue a token",
		Description: "Issue a new token for the calling owner. The response carries the raw credential exactly once. Requires the tokens.write scope.",
		OperationID: "create_token",
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: "Token name and scopes",
				Required:    true,
				Content: openapi3.NewContentWithJSONSchemaRef(
					openapi3.NewSchemaRef("#/components/schemas/CreateTokenRequest", nil),
				),
			},
		},
		Responses: newResponses(
			"201", "The issued token with its one-time credential",
			openapi3.NewSchemaRef("#/components/schemas/IssuedTokenResponse", nil),
		),
	}
}

func revokeAllOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "Revoke all tokens",
		Description: "Revoke every token of the calling owner, including the one authenticating this request. Requires the tokens.write scope.",
		OperationID: "revoke_all_tokens",
		Responses: newResponses(
			"200", "Number of tokens revoked", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"revoked": &openapi3.SchemaRef{
							Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"},
						},
					},
				},
			},
		),
	}
}

func getTokenOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "Inspect a token",
		Description: "Get one of the calling owner's tokens by id. Foreign and unknown ids both return 404. Requires the tokens.read scope.",
		OperationID: "get_token",
		Responses: newResponses(
			"200", "The token",
			openapi3.NewSchemaRef("#/components/schemas/AccessToken", nil),
		),
	}
}

func revokeTokenOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "Revoke a token",
		Description: "Permanently revoke one of the calling owner's tokens. Requires the tokens.write scope.",
		OperationID: "revoke_token",
		Responses: newResponses(
			"200", "Revocation confirmation", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"revoked": &openapi3.SchemaRef{
							Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}},
						},
					},
				},
			},
		),
	}
}

func whoamiOperation() *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"tokens"},
		Summary:     "Identify the calling token",
		Description: "Return the token that authenticated the current request.",
		OperationID: "whoami",
		Responses: newResponses(
			"200", "The authenticated token",
			openapi3.NewSchemaRef("#/components/schemas/AccessToken", nil),
		),
	}
}

func healthOperation(id, summary, description string) *openapi3.Operation {
	okDesc := "OK"
	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &okDesc,
			Content: openapi3.NewContentWithJSONSchemaRef(&openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
		},
	})
	return &openapi3.Operation{
		Tags:        []string{"health"},
		Summary:     summary,
		Description: description,
		OperationID: id,
		Security:    &openapi3.SecurityRequirements{},
		Responses:   responses,
	}
}

func tokenIDPathParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewPathParameter("tokenID").
				WithDescription("Public token identifier (km_ prefix). For DELETE, the full credential is also accepted.").
				WithSchema(openapi3.NewStringSchema()),
		},
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response plus the
// standard error responses shared by every authenticated endpoint.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	badReqDesc := "Bad request"
	responses.Set("400", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &badReqDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	unauthDesc := "Missing or invalid credential"
	responses.Set("401", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unauthDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	forbiddenDesc := "Credential lacks the required scope"
	responses.Set("403", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &forbiddenDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	notFoundDesc := "Not found"
	responses.Set("404", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &notFoundDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	serverErrDesc := "Internal server error"
	responses.Set("500", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &serverErrDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	return responses
}
