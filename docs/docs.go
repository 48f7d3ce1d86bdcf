// Package docs registers the Swagger spec served by gin-swagger. It is kept
// in step with the handler annotations by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Sensaur Hub"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/hub/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "Hub status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.APIResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/hub.Status"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/hub/devices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "Device info map",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.APIResponse"},
                                {"type": "object", "properties": {"data": {"type": "object", "additionalProperties": {"$ref": "#/definitions/hub.DeviceInfo"}}}}
                            ]
                        }
                    }
                }
            }
        },
        "/hub/sensors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "Sensor values",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/utils.APIResponse"},
                                {"type": "object", "properties": {"data": {"type": "object", "additionalProperties": {"type": "string"}}}}
                            ]
                        }
                    }
                }
            }
        },
        "/hub/connections": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "List connections",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/hub/config": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "Apply hub config",
                "parameters": [
                    {"description": "Config message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/hub.ConfigMessage"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid config", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/hub/actuators": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Hub"],
                "summary": "Set actuators",
                "parameters": [
                    {"description": "Actuator values", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "422": {"description": "Unknown component or not an actuator", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/devices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Devices"],
                "summary": "List devices",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/devices/{device_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Devices"],
                "summary": "Get device",
                "parameters": [
                    {"type": "string", "description": "Device ID", "name": "device_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Device not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/devices/{device_id}/components/{index}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Devices"],
                "summary": "Get component",
                "parameters": [
                    {"type": "string", "description": "Device ID", "name": "device_id", "in": "path", "required": true},
                    {"type": "integer", "description": "Component index", "name": "index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid index", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Device or component not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/components/{component_id}/readings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readings"],
                "summary": "List readings",
                "parameters": [
                    {"type": "string", "description": "Component ID", "name": "component_id", "in": "path", "required": true},
                    {"type": "integer", "default": 100, "description": "Maximum readings", "name": "limit", "in": "query"},
                    {"type": "string", "description": "RFC3339 lower bound", "name": "since", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "503": {"description": "Persistence disabled", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/discovery/scan": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "Scan for ports",
                "parameters": [
                    {"type": "string", "default": "all", "description": "Scanner type", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Port scan completed", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "500": {"description": "Scan failed", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/ws/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["WebSocket"],
                "summary": "WebSocket statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/discovery/scanners": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Discovery"],
                "summary": "List scanners",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "hub.Status": {
            "type": "object",
            "properties": {
                "hub_id": {"type": "string"},
                "owner_id": {"type": "string"},
                "host": {"type": "string"},
                "polling_interval": {"type": "number"},
                "firmware_url": {"type": "string"},
                "devices": {"type": "integer"},
                "online": {"type": "integer"}
            }
        },
        "hub.ComponentRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dir": {"type": "string"},
                "type": {"type": "string"},
                "model": {"type": "string"},
                "units": {"type": "string"}
            }
        },
        "hub.DeviceInfo": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "components": {"type": "array", "items": {"$ref": "#/definitions/hub.ComponentRecord"}}
            }
        },
        "hub.ConfigMessage": {
            "type": "object",
            "properties": {
                "polling_interval": {"type": "number"},
                "firmware_url": {"type": "string"}
            }
        },
        "utils.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "utils.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"$ref": "#/definitions/utils.APIError"},
                "timestamp": {"type": "string"},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sensaur Hub API",
	Description:      "Sensor hub: device state, actuator commands and stored readings",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
