package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Department Timetable API",
        "description": "Constraint-based weekly timetable generation and validation for department sections",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Generation, versions and validation"},
        {"name": "Catalog", "description": "Departments, teaching obligations and rooms"},
        {"name": "Observability", "description": "Runtime statistics"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a new timetable version for a department section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Active timetable exists or generation already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Infeasible even fully relaxed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Search budget exhausted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/active": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Active timetable of a department section",
                "parameters": [
                    {"name": "departmentId", "in": "query", "required": true, "type": "string"},
                    {"name": "section", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/versions": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Generation history of a department section, newest first",
                "parameters": [
                    {"name": "departmentId", "in": "query", "required": true, "type": "string"},
                    {"name": "section", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get one timetable version with its slots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/validate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Re-check a stored timetable against the full rule set",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Validation report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List departments",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/departments/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get one department with its known sections",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown department", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/departments/{id}/obligations": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List teaching obligations of a department",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "section", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "isLab", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/departments/{id}/rooms": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List rooms of a department",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["CLASSROOM", "LABORATORY"]},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated runtime statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "departmentId": {"type": "string"},
                "section": {"type": "string"},
                "semester": {"type": "integer"},
                "academicYear": {"type": "string"},
                "regenerate": {"type": "boolean"}
            },
            "required": ["departmentId", "section"]
        },
        "GenerateTimetableResponse": {
            "type": "object",
            "properties": {
                "timetableId": {"type": "string"},
                "version": {"type": "integer"},
                "slotCount": {"type": "integer"},
                "relaxations": {"type": "array", "items": {"type": "string"}},
                "attempts": {"type": "array", "items": {"$ref": "#/definitions/Attempt"}},
                "stats": {"type": "object"}
            }
        },
        "Attempt": {
            "type": "object",
            "properties": {
                "applied": {"type": "array", "items": {"type": "string"}},
                "outcome": {"type": "string", "enum": ["SOLVED", "INFEASIBLE", "TIMED_OUT"]},
                "steps": {"type": "integer"},
                "backtracks": {"type": "integer"},
                "elapsedMs": {"type": "integer"}
            }
        },
        "Timetable": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "department_id": {"type": "string"},
                "section": {"type": "string"},
                "semester": {"type": "integer"},
                "academic_year": {"type": "string"},
                "version": {"type": "integer"},
                "is_active": {"type": "boolean"},
                "relaxations": {"type": "array", "items": {"type": "string"}},
                "stats": {"type": "object"},
                "generated_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "TimetableSlot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timetable_id": {"type": "string"},
                "obligation_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "room_id": {"type": "string"},
                "day": {"type": "integer"},
                "period": {"type": "integer"},
                "is_lab": {"type": "boolean"},
                "block_length": {"type": "integer"},
                "subject_code": {"type": "string"},
                "subject_name": {"type": "string"},
                "teacher_name": {"type": "string"},
                "room_name": {"type": "string"}
            }
        },
        "Violation": {
            "type": "object",
            "properties": {
                "rule": {"type": "string"},
                "day": {"type": "integer"},
                "period": {"type": "integer"},
                "roomId": {"type": "string"},
                "teacherId": {"type": "string"},
                "sessionIds": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"}
            }
        },
        "ValidateTimetableResponse": {
            "type": "object",
            "properties": {
                "timetableId": {"type": "string"},
                "valid": {"type": "boolean"},
                "violations": {"type": "array", "items": {"$ref": "#/definitions/Violation"}},
                "checkedAt": {"type": "string"}
            }
        },
        "Department": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "code": {"type": "string"},
                "name": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "TeachingObligation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "department_id": {"type": "string"},
                "section": {"type": "string"},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "periods_per_week": {"type": "integer"},
                "max_periods_per_day": {"type": "integer"},
                "is_lab": {"type": "boolean"},
                "subject_code": {"type": "string"},
                "subject_name": {"type": "string"},
                "teacher_name": {"type": "string"}
            }
        },
        "Room": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "code": {"type": "string"},
                "name": {"type": "string"},
                "capacity": {"type": "integer"},
                "type": {"type": "string", "enum": ["CLASSROOM", "LABORATORY"]},
                "department_id": {"type": "string"},
                "active": {"type": "boolean"}
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
