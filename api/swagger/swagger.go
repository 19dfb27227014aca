package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Analytics Portal API",
        "description": "Teacher/student portal: assignments, performance records and risk prediction",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login and logout"},
        {"name": "Records", "description": "Teacher record management"},
        {"name": "Predictions", "description": "Risk prediction"},
        {"name": "Students", "description": "Student self-service views"},
        {"name": "Files", "description": "Signed file downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in as teacher or student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current session token",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List all student records with risk counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/export": {
            "get": {
                "tags": ["Records"],
                "summary": "Export the roster",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/records/{id}/assignment": {
            "post": {
                "tags": ["Records"],
                "summary": "Upload an assignment file for a student",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "name", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/performance": {
            "put": {
                "tags": ["Records"],
                "summary": "Update marks, attendance and pass/fail status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PerformanceUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record for student"}
                }
            }
        },
        "/records/{id}/credential": {
            "put": {
                "tags": ["Records"],
                "summary": "Set a student's login password",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetCredentialRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No record for student"}
                }
            }
        },
        "/predictions/{id}": {
            "post": {
                "tags": ["Predictions"],
                "summary": "Run risk prediction for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/PredictRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record for student"},
                    "502": {"description": "Model unavailable"}
                }
            }
        },
        "/students/me/assignments": {
            "get": {
                "tags": ["Students"],
                "summary": "List the signed-in student's assignments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/me/performance": {
            "get": {
                "tags": ["Students"],
                "summary": "View the signed-in student's performance report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/files/download": {
            "get": {
                "tags": ["Files"],
                "summary": "Download a file with a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "410": {"description": "Link expired"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["TEACHER", "STUDENT"]},
                "id": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["role", "id", "password"]
        },
        "PerformanceUpdateRequest": {
            "type": "object",
            "properties": {
                "marks": {"type": "number"},
                "attendance": {"type": "number"},
                "status": {"type": "string", "enum": ["Pass", "Fail", "NA"]}
            },
            "required": ["status"]
        },
        "SetCredentialRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string", "minLength": 6}
            },
            "required": ["password"]
        },
        "PredictRequest": {
            "type": "object",
            "properties": {
                "medical_certificate": {"type": "boolean"}
            }
        },
        "StudentRecord": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "name": {"type": "string"},
                "marks": {"type": "number"},
                "attendance": {"type": "number"},
                "status": {"type": "string"},
                "risk_status": {"type": "string"},
                "type": {"type": "string"},
                "file_name": {"type": "string"},
                "upload_date": {"type": "string"},
                "last_updated": {"type": "string"},
                "last_predicted": {"type": "string"}
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
