package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Portal API",
        "description": "Institution management portal backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Password and face login"},
        {"name": "Users", "description": "User administration"},
        {"name": "Attendance", "description": "Daily check-in and check-out"},
        {"name": "Leave", "description": "Leave applications and balances"},
        {"name": "Invoices", "description": "Billing and fee ledger"},
        {"name": "Referrals", "description": "Referral program"},
        {"name": "Mailbox", "description": "Internal webmail"},
        {"name": "Chat", "description": "Direct messaging"},
        {"name": "Notifications", "description": "In-app notifications"},
        {"name": "Game", "description": "Multiplayer racing sessions"},
        {"name": "Documents", "description": "Generated PDF documents"},
        {"name": "Dashboard", "description": "Admin statistics"},
        {"name": "Portal", "description": "Holidays, announcements and settings"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by mobile, password and role",
                "responses": {
                    "200": {"description": "Token issued or PENDING_SETUP"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/face-login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Identify the user from a face descriptor",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Face not recognized"}
                }
            }
        }
    },
    "definitions": {
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
