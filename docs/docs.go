// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g internal/http/router.go` after changing
// handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/users/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register an account",
                "operationId": "registerUser",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Username or email taken", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Log in",
                "operationId": "loginUser",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "List users (paginated)",
                "operationId": "listUsers",
                "parameters": [
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListUsersResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Current user",
                "operationId": "getMe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Delete own account",
                "operationId": "deleteMe",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "List posts (paginated)",
                "operationId": "listPosts",
                "parameters": [
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "maximum": 100, "minimum": 1, "name": "per_page", "in": "query"},
                    {"type": "string", "name": "keyword", "in": "query"},
                    {"type": "integer", "name": "author_id", "in": "query"},
                    {"enum": ["created_at", "updated_at", "title"], "type": "string", "default": "created_at", "name": "sort", "in": "query"},
                    {"enum": ["asc", "desc"], "type": "string", "default": "desc", "name": "order", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListPostsResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Create a post",
                "operationId": "createPost",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Post"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Get a post",
                "operationId": "getPost",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PostDetailResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Update a post",
                "operationId": "updatePost",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Post"}},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Posts"],
                "summary": "Delete a post",
                "operationId": "deletePost",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "List comments on a post",
                "operationId": "listComments",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCommentsResponse"}},
                    "304": {"description": "Not Modified"},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "Comment on a post",
                "operationId": "createComment",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Comment"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/posts/comments/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "Update a comment",
                "operationId": "updateComment",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Comment"}},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Comments"],
                "summary": "Delete a comment",
                "operationId": "deleteComment",
                "parameters": [
                    {"minimum": 1, "type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "content": {"type": "string"},
                "author_id": {"type": "integer"},
                "author": {"$ref": "#/definitions/domain.User"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "content": {"type": "string"},
                "post_id": {"type": "integer"},
                "author_id": {"type": "integer"},
                "author": {"$ref": "#/definitions/domain.User"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "field": {"type": "string", "example": "email"},
                "message": {"type": "string", "example": "post not found"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "alice"},
                "email": {"type": "string", "example": "alice@example.com"},
                "password": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/domain.User"},
                "token": {"type": "string"},
                "token_type": {"type": "string", "example": "Bearer"},
                "expires_at": {"type": "string"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListUsersResponse": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"$ref": "#/definitions/domain.User"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.PostRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "content": {"type": "string"}
            }
        },
        "handlers.PostPagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"},
                "has_prev": {"type": "boolean"}
            }
        },
        "handlers.PostFilters": {
            "type": "object",
            "properties": {
                "keyword": {"type": "string"},
                "author_id": {"type": "integer"},
                "sort": {"type": "string"},
                "order": {"type": "string"}
            }
        },
        "handlers.ListPostsResponse": {
            "type": "object",
            "properties": {
                "posts": {"type": "array", "items": {"$ref": "#/definitions/domain.Post"}},
                "pagination": {"$ref": "#/definitions/handlers.PostPagination"},
                "filters": {"$ref": "#/definitions/handlers.PostFilters"}
            }
        },
        "handlers.PostDetailResponse": {
            "type": "object",
            "properties": {
                "post": {"$ref": "#/definitions/domain.Post"},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "comments_count": {"type": "integer"}
            }
        },
        "handlers.CommentRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            }
        },
        "handlers.ListCommentsResponse": {
            "type": "object",
            "properties": {
                "post_id": {"type": "integer"},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "count": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Blog Backend API",
	Description:      "Users, posts and comments with bearer-token authentication and author-only mutations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
