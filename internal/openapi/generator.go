// Package openapi builds the OpenAPI document describing the site API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/xyntoro/xyntoro/internal/model"
)

// CookieScheme is the name of the session cookie security scheme.
const CookieScheme = "cookieAuth"

// Generate returns the OpenAPI 3.1 document for the site API served at
// baseURL. cookieName is the session cookie set by the login endpoint.
func Generate(baseURL, version, cookieName string) *openapi3.T {
	if cookieName == "" {
		cookieName = "token"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Xyntoro API",
			Description: "Team profiles, contact messages and the admin session of the Xyntoro site.",
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

	doc.Components.SecuritySchemes[CookieScheme] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			In:          "cookie",
			Name:        cookieName,
			Description: "Session token set by POST /api/auth/login.",
		},
	}

	addSchemas(doc.Components.Schemas)

	doc.Paths = openapi3.NewPaths()
	addAuthPaths(doc)
	addTeamPaths(doc)
	addMessagePaths(doc)

	doc.Paths.Set("/api/health", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Service health",
			Description: "Reports that the API process is running and the state of the database connection. Never touches the database.",
			OperationID: "health",
			Responses: newResponses("200", "Service is running", object(openapi3.Schemas{
				"status":   str("Always OK."),
				"message":  str(""),
				"database": enum("Database connection state.", "absent", "connecting", "ready", "failed"),
			})),
		},
	})

	return doc
}

func addSchemas(schemas openapi3.Schemas) {
	schemas["ErrorResponse"] = object(openapi3.Schemas{
		"error": object(openapi3.Schemas{
			"code":    integer("int32", ""),
			"message": str(""),
			"context": object(openapi3.Schemas{
				"fields": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:        &openapi3.Types{"array"},
					Items:       str(""),
					Description: "Fields that failed validation.",
				}},
			}),
		}),
	})

	schemas["StatusResponse"] = object(openapi3.Schemas{
		"success": boolean(""),
		"message": str(""),
	})

	schemas["LoginRequest"] = object(openapi3.Schemas{
		"username": str(""),
		"password": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "password"}},
	}, "username", "password")

	schemas["TeamMember"] = object(openapi3.Schemas{
		"_id":       str("Time-ordered UUID."),
		"name":      str(""),
		"role":      str(""),
		"picture":   str("Public URL of the picture, or empty."),
		"category":  enum("", model.Categories...),
		"order":     integer("int32", "Position within the category."),
		"createdAt": dateTime(),
		"updatedAt": dateTime(),
	}, "_id", "name", "role", "picture", "category", "order", "createdAt", "updatedAt")

	schemas["TeamMemberInput"] = object(openapi3.Schemas{
		"name":     str(""),
		"role":     str(""),
		"picture":  str(""),
		"category": enum("Defaults to core.", model.Categories...),
		"order":    integer("int32", "Defaults to 0."),
	})

	schemas["TeamMemberForm"] = object(openapi3.Schemas{
		"name":     str(""),
		"role":     str(""),
		"picture":  str("Used when no image is uploaded."),
		"category": enum("", model.Categories...),
		"order":    str("Integer."),
		"image": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:        &openapi3.Types{"string"},
			Format:      "binary",
			Description: "jpg, jpeg, png or webp image.",
		}},
	})

	schemas["ContactMessage"] = object(openapi3.Schemas{
		"_id":       str(""),
		"firstName": str(""),
		"lastName":  str(""),
		"email":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
		"phone":     str(""),
		"heardFrom": str(""),
		"message":   str(""),
		"read":      boolean(""),
		"createdAt": dateTime(),
		"updatedAt": dateTime(),
	}, "_id", "firstName", "email", "heardFrom", "message", "read", "createdAt", "updatedAt")

	schemas["ContactMessageInput"] = object(openapi3.Schemas{
		"firstName": str(""),
		"lastName":  str(""),
		"email":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
		"phone":     str(""),
		"heardFrom": str(""),
		"message":   str(""),
	}, "firstName", "email", "heardFrom", "message")
}

func addAuthPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/auth/login", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log in",
			Description: "Verifies admin credentials and sets the session cookie.",
			OperationID: "login",
			RequestBody: jsonBody("Admin credentials", "LoginRequest"),
			Responses: newResponses("200", "Logged in", object(openapi3.Schemas{
				"success":   boolean(""),
				"username":  str(""),
				"expiresAt": dateTime(),
			}), "400", "401", "429", "503"),
		},
	})
	doc.Paths.Set("/api/auth/logout", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log out",
			Description: "Clears the session cookie.",
			OperationID: "logout",
			Responses:   newResponses("200", "Logged out", ref("StatusResponse")),
		},
	})
	doc.Paths.Set("/api/auth/check", &openapi3.PathItem{
		Get: secured(&openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Check session",
			OperationID: "checkSession",
			Responses: newResponses("200", "Session is valid", object(openapi3.Schemas{
				"authenticated": boolean(""),
				"username":      str(""),
			}), "401", "503"),
		}),
	})
}

func addTeamPaths(doc *openapi3.T) {
	member := ref("TeamMember")
	idParam := openapi3.Parameters{
		{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
	}
	writeBody := &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: "Team member fields, as JSON or as a form with an optional image file",
			Required:    true,
			Content: openapi3.Content{
				"application/json":    &openapi3.MediaType{Schema: ref("TeamMemberInput")},
				"multipart/form-data": &openapi3.MediaType{Schema: ref("TeamMemberForm")},
			},
		},
	}

	doc.Paths.Set("/api/team", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"team"},
			Summary:     "List team members",
			Description: "Ordered by category (leadership, core, support), then order, then creation.",
			OperationID: "listTeamMembers",
			Responses:   newResponses("200", "Team members", arrayOf(member), "503"),
		},
		Post: secured(&openapi3.Operation{
			Tags:        []string{"team"},
			Summary:     "Create a team member",
			OperationID: "createTeamMember",
			RequestBody: writeBody,
			Responses:   newResponses("201", "Created team member", member, "400", "401", "503"),
		}),
	})
	doc.Paths.Set("/api/team/{id}", &openapi3.PathItem{
		Parameters: idParam,
		Get: &openapi3.Operation{
			Tags:        []string{"team"},
			Summary:     "Get a team member",
			OperationID: "getTeamMember",
			Responses:   newResponses("200", "Team member", member, "404", "503"),
		},
		Put: secured(&openapi3.Operation{
			Tags:        []string{"team"},
			Summary:     "Update a team member",
			Description: "Only provided fields change. Empty name, role and category are ignored.",
			OperationID: "updateTeamMember",
			RequestBody: writeBody,
			Responses:   newResponses("200", "Updated team member", member, "400", "401", "404", "503"),
		}),
		Delete: secured(&openapi3.Operation{
			Tags:        []string{"team"},
			Summary:     "Delete a team member",
			OperationID: "deleteTeamMember",
			Responses:   newResponses("200", "Deleted", ref("StatusResponse"), "401", "404", "503"),
		}),
	})
}

func addMessagePaths(doc *openapi3.T) {
	message := ref("ContactMessage")
	idParam := openapi3.Parameters{
		{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())},
	}

	doc.Paths.Set("/api/messages", &openapi3.PathItem{
		Get: secured(&openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "List contact messages",
			Description: "Newest first.",
			OperationID: "listMessages",
			Responses:   newResponses("200", "Messages", arrayOf(message), "401", "503"),
		}),
		Post: &openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "Submit the contact form",
			OperationID: "createMessage",
			RequestBody: jsonBody("Contact form fields", "ContactMessageInput"),
			Responses:   newResponses("201", "Message stored", ref("StatusResponse"), "400", "503"),
		},
	})
	doc.Paths.Set("/api/messages/unread-count", &openapi3.PathItem{
		Get: secured(&openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "Count unread messages",
			OperationID: "countUnreadMessages",
			Responses: newResponses("200", "Unread count", object(openapi3.Schemas{
				"count": integer("int32", ""),
			}), "401", "503"),
		}),
	})
	doc.Paths.Set("/api/messages/{id}/read", &openapi3.PathItem{
		Parameters: idParam,
		Put: secured(&openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "Mark a message as read",
			OperationID: "markMessageRead",
			Responses:   newResponses("200", "Updated message", message, "401", "404", "503"),
		}),
	})
	doc.Paths.Set("/api/messages/{id}", &openapi3.PathItem{
		Parameters: idParam,
		Delete: secured(&openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "Delete a message",
			OperationID: "deleteMessage",
			Responses:   newResponses("200", "Deleted", ref("StatusResponse"), "401", "404", "503"),
		}),
	})
}

// secured marks op as requiring the session cookie.
func secured(op *openapi3.Operation) *openapi3.Operation {
	op.Security = &openapi3.SecurityRequirements{{CookieScheme: {}}}
	return op
}

func jsonBody(description, schema string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(ref(schema)),
		},
	}
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"401": "Unauthorized",
	"404": "Not found",
	"429": "Too many requests",
	"500": "Internal server error",
	"503": "Database unavailable",
}

// newResponses builds a Responses map with a success response, the listed
// error responses and a 500.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref("ErrorResponse")
	for _, code := range append(errorCodes, "500") {
		desc := errorDescriptions[code]
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// ─── Schema Helpers ─────────────────────────────────────────────────────────

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func object(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}}
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: items,
	}}
}

func str(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func integer(format, description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: format, Description: description}}
}

func boolean(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}, Description: description}}
}

func dateTime() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
}

func enum(description string, values ...string) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return &openapi3.SchemaRef{Value: s}
}
