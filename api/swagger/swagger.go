package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Storybook Classroom API",
        "description": "Classroom storybook authoring backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Student and teacher login flows"},
        {"name": "Students", "description": "Roster management"},
        {"name": "Works", "description": "Story authoring and publication"},
        {"name": "Assistant", "description": "Story writing assistant"},
        {"name": "Teachers", "description": "Staff accounts and approval"},
        {"name": "Settings", "description": "Classroom configuration"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/auth/student/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate student by PIN",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Locked out"}
                }
            }
        },
        "/auth/student/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate student by QR token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"token": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unknown token"}
                }
            }
        },
        "/auth/student/pin": {
            "post": {
                "tags": ["Authentication"],
                "summary": "First-time PIN setup",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetPINRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "PIN already set"}
                }
            }
        },
        "/auth/teacher/pin-login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate teacher by shared PIN",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"pin": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Locked out"}
                }
            }
        },
        "/auth/teacher/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate teacher by email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/teacher/federated": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate teacher by federated identity token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"identityToken": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/teacher/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "End the teacher session",
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List the roster",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register one student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already registered"}
                }
            }
        },
        "/students/import": {
            "post": {
                "tags": ["Students"],
                "summary": "Import students from CSV",
                "consumes": ["text/plain"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/works/{step}": {
            "get": {
                "tags": ["Works"],
                "summary": "Read the authenticated student's story step",
                "parameters": [
                    {"name": "step", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Works"],
                "summary": "Save the authenticated student's story step",
                "parameters": [
                    {"name": "step", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveWorkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Write lock contention"}
                }
            }
        },
        "/works/{step}/submit": {
            "post": {
                "tags": ["Works"],
                "summary": "Hand in a story step",
                "parameters": [
                    {"name": "step", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not a draft"}
                }
            }
        },
        "/assistant/chat": {
            "post": {
                "tags": ["Assistant"],
                "summary": "Exchange one message with the assistant",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Daily quota exhausted"}
                }
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List staff accounts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Teachers"],
                "summary": "Register a staff account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterTeacherRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "List settings with secrets masked",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Write one writable setting",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"key": {"type": "string"}, "value": {"type": "string"}}}}
                ],
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/exports/students.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the roster as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/exports/story/{step}/{name}/{number}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download one story as a printable PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "step", "in": "path", "required": true, "type": "integer"},
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF file"},
                    "404": {"description": "No such work"}
                }
            }
        }
    },
    "definitions": {
        "StudentLoginRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "number": {"type": "integer"},
                "pin": {"type": "string"}
            },
            "required": ["name", "number", "pin"]
        },
        "SetPINRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "number": {"type": "integer"},
                "pin": {"type": "string"}
            },
            "required": ["name", "number", "pin"]
        },
        "RegisterStudentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "number": {"type": "integer"},
                "pin": {"type": "string"}
            },
            "required": ["name", "number"]
        },
        "SaveWorkRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "isComplete": {"type": "boolean"}
            },
            "required": ["data"]
        },
        "ChatRequest": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "step": {"type": "integer"},
                "message": {"type": "string"}
            },
            "required": ["step", "message"]
        },
        "RegisterTeacherRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "name", "password"]
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
