package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clan Stats Reconciliation API",
        "description": "Review and reconcile staged chest, member and event submissions against production data",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Submissions", "description": "Staged entry review and reconciliation"},
        {"name": "Observability", "description": "Health, readiness and counters"}
    ],
    "paths": {
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get a page of staged entries with submission header and facets",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "per_page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "item_status", "in": "query", "type": "string", "enum": ["pending", "auto_matched", "approved", "rejected"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "unmatched", "in": "query", "type": "boolean"},
                    {"name": "player_name", "in": "query", "type": "string"},
                    {"name": "chest_name", "in": "query", "type": "string"},
                    {"name": "source", "in": "query", "type": "string"},
                    {"name": "event_name", "in": "query", "type": "string"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_dir", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "skip_filter_options", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Submission not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Submissions"],
                "summary": "Delete one staged entry, or the whole submission when entryId is omitted",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"},
                    {"name": "entryId", "in": "query", "type": "string", "format": "uuid"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DeleteResult"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Submissions"],
                "summary": "Edit entry fields, assign an entry's account, or update submission metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PatchSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Event belongs to another clan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Submission, entry, account or event not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "SYNC_FAILED, AMBIGUOUS_MATCH or STORAGE_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Reconcile and cache counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "PatchSubmissionRequest": {
            "type": "object",
            "properties": {
                "entryId": {"type": "string", "format": "uuid"},
                "editFields": {"type": "object"},
                "matchGameAccountId": {"type": "string", "format": "uuid", "x-nullable": true},
                "saveCorrection": {"type": "boolean"},
                "referenceDate": {"type": "string", "format": "date", "x-nullable": true},
                "linkedEventId": {"type": "string", "format": "uuid", "x-nullable": true}
            }
        },
        "DeleteResult": {
            "type": "object",
            "properties": {
                "deleted": {"type": "boolean"},
                "submissionDeleted": {"type": "boolean"},
                "remainingCount": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
