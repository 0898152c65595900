package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CCAS API",
        "description": "Customs clearance shipment tracking and alerting",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Shipments", "description": "Shipment registry and ETA management"},
        {"name": "Workflow", "description": "Clearance step tracking"},
        {"name": "Alerts", "description": "Escalation alerts and acknowledgment"},
        {"name": "Dashboard", "description": "Aggregate clearance summary"},
        {"name": "Reports", "description": "Clearance report exports"}
    ],
    "paths": {
        "/shipments": {
            "get": {
                "tags": ["Shipments"],
                "summary": "List shipments",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "principal", "in": "query", "type": "string"},
                    {"name": "etaStart", "in": "query", "type": "string", "format": "date"},
                    {"name": "etaEnd", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Shipments"],
                "summary": "Register a shipment and generate its 34-step clearance workflow",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShipmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate shipment number"}
                }
            }
        },
        "/shipments/{id}": {
            "get": {
                "tags": ["Shipments"],
                "summary": "Get shipment detail with workflow steps",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Shipments"],
                "summary": "Update shipment fields with optimistic locking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateShipmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Version conflict"}
                }
            },
            "delete": {
                "tags": ["Shipments"],
                "summary": "Cancel and soft-delete a shipment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/shipments/{id}/eta": {
            "put": {
                "tags": ["Shipments"],
                "summary": "Move the ETA and recalculate all step target dates",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateETARequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Version conflict or edit limit exceeded"}
                }
            }
        },
        "/shipments/import": {
            "post": {
                "tags": ["Shipments"],
                "summary": "Bulk-register shipments",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/CreateShipmentRequest"}}}
                ],
                "responses": {
                    "200": {"description": "Import summary"}
                }
            }
        },
        "/steps/my": {
            "get": {
                "tags": ["Workflow"],
                "summary": "List steps assigned to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "critical", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/steps/{id}/complete": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record the actual completion date of a step",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteStepRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not an assignee"}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List the caller's alerts",
                "parameters": [
                    {"name": "shipmentId", "in": "query", "type": "integer"},
                    {"name": "severity", "in": "query", "type": "string"},
                    {"name": "acknowledged", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}/ack": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Acknowledge an alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the recipient"}
                }
            }
        },
        "/alerts/evaluate": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Run the alert evaluation sweep immediately",
                "responses": {
                    "200": {"description": "Evaluation summary"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Clearance dashboard summary",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/clearance": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the clearance status report",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "principal", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        }
    },
    "definitions": {
        "CreateShipmentRequest": {
            "type": "object",
            "required": ["shipmentNumber", "principal", "brand", "lcNumber", "invoiceAmountOMR", "eta"],
            "properties": {
                "shipmentNumber": {"type": "string"},
                "principal": {"type": "string"},
                "brand": {"type": "string"},
                "lcNumber": {"type": "string"},
                "invoiceAmountOMR": {"type": "string", "example": "12500.000"},
                "eta": {"type": "string", "format": "date"}
            }
        },
        "UpdateShipmentRequest": {
            "type": "object",
            "required": ["expectedVersion"],
            "properties": {
                "expectedVersion": {"type": "integer"},
                "principal": {"type": "string"},
                "brand": {"type": "string"},
                "lcNumber": {"type": "string"},
                "invoiceAmountOMR": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "completed", "cancelled"]}
            }
        },
        "UpdateETARequest": {
            "type": "object",
            "required": ["expectedVersion", "eta"],
            "properties": {
                "expectedVersion": {"type": "integer"},
                "eta": {"type": "string", "format": "date"}
            }
        },
        "CompleteStepRequest": {
            "type": "object",
            "required": ["actualDate"],
            "properties": {
                "actualDate": {"type": "string", "format": "date"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "total": {"type": "integer"},
                "pages": {"type": "integer"}
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
