package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Timetable generation and teacher conflict detection for schools",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Periods", "description": "Daily period catalog and timetable settings"},
        {"name": "Allocations", "description": "Weekly subject hours per class"},
        {"name": "Generation", "description": "Greedy timetable generation"},
        {"name": "Timetables", "description": "Timetable grids, manual edits, exports and conflicts"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "security": [],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "security": [],
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "security": [],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/timetable/periods": {
            "get": {
                "tags": ["Periods"],
                "summary": "List the period catalog",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Periods"],
                "summary": "Replace the period catalog",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplacePeriodsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Timetable locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/settings": {
            "get": {
                "tags": ["Periods"],
                "summary": "Get timetable settings",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Periods"],
                "summary": "Update the representative period duration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/allocations": {
            "get": {
                "tags": ["Allocations"],
                "summary": "List class allocations",
                "parameters": [{"name": "classId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Allocations"],
                "summary": "Replace class allocations",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceAllocationsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/allocations/validate": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Check allocations against the weekly capacity",
                "parameters": [{"name": "classId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/classes/{classId}/timetable/generate": {
            "post": {
                "tags": ["Generation"],
                "summary": "Regenerate one class timetable",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "confirm", "in": "query", "required": true, "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Confirmation required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Timetable locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/generate-all": {
            "post": {
                "tags": ["Generation"],
                "summary": "Regenerate every class timetable of the school",
                "parameters": [{"name": "confirm", "in": "query", "required": true, "type": "boolean"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Confirmation required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Timetable locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/timetable": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Class timetable grid",
                "parameters": [{"name": "classId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/timetable/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a class timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/classes/{classId}/timetable/slots": {
            "put": {
                "tags": ["Timetables"],
                "summary": "Write one cell of a class timetable",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Timetable locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Clear one cell of a class timetable",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "periodId", "in": "query", "required": true, "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/teachers/{teacherId}/timetable": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Teacher timetable",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetable/conflicts": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Teacher double bookings across classes",
                "parameters": [{"name": "fresh", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "PeriodInput": {
            "type": "object",
            "required": ["name", "startTime", "endTime", "order"],
            "properties": {
                "name": {"type": "string"},
                "startTime": {"type": "string", "example": "07:00"},
                "endTime": {"type": "string", "example": "07:45"},
                "order": {"type": "integer"},
                "isBreak": {"type": "boolean"}
            }
        },
        "ReplacePeriodsRequest": {
            "type": "object",
            "required": ["periods"],
            "properties": {
                "periods": {"type": "array", "items": {"$ref": "#/definitions/PeriodInput"}}
            }
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "required": ["periodDurationMinutes"],
            "properties": {
                "periodDurationMinutes": {"type": "integer", "minimum": 1, "maximum": 240}
            }
        },
        "AllocationInput": {
            "type": "object",
            "required": ["subjectId"],
            "properties": {
                "subjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "hoursPerWeek": {"type": "number"}
            }
        },
        "ReplaceAllocationsRequest": {
            "type": "object",
            "properties": {
                "allocations": {"type": "array", "items": {"$ref": "#/definitions/AllocationInput"}}
            }
        },
        "UpsertSlotRequest": {
            "type": "object",
            "required": ["periodId", "dayOfWeek"],
            "properties": {
                "periodId": {"type": "string"},
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 5},
                "classSubjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "roomNumber": {"type": "string"}
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
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
