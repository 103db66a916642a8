// Package docs registers the OpenAPI description of the JSON API served
// under /swagger. Regenerate with `swag init -g cmd/main.go`.
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
        "/dashboard": {
            "get": {
                "description": "Association, its members and competitions still open for registration. Failed steps are listed in degraded.",
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard data",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DashboardState"}},
                    "401": {"description": "Неавторизован"},
                    "503": {"description": "Сервис аутентификации недоступен"}
                }
            }
        },
        "/admin": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Admin overview",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AdminDashboardState"}},
                    "401": {"description": "Неавторизован"},
                    "403": {"description": "Нужна роль admin"}
                }
            }
        },
        "/association": {
            "get": {
                "produces": ["application/json"],
                "tags": ["association"],
                "summary": "Моя ассоциация",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Неавторизован"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["association"],
                "summary": "Создать или переименовать ассоциацию",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Ошибка валидации"}}
            }
        },
        "/association/logo": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["association"],
                "summary": "Загрузить логотип ассоциации",
                "parameters": [{"type": "file", "description": "PNG, JPEG, WebP или SVG, до 2 МБ", "name": "logo", "in": "formData", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "413": {"description": "Файл слишком большой"},
                    "415": {"description": "Неподдерживаемый тип файла"},
                    "501": {"description": "Хранилище не настроено"}
                }
            }
        },
        "/members": {
            "get": {
                "produces": ["application/json"],
                "tags": ["members"],
                "summary": "Члены моей ассоциации",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["members"],
                "summary": "Добавить члена ассоциации",
                "parameters": [{"description": "Данные участника", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.MemberInput"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Ошибка валидации / нет ассоциации"}}
            }
        },
        "/members/{memberID}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["members"],
                "summary": "Изменить члена ассоциации",
                "parameters": [
                    {"type": "string", "description": "Member ID", "name": "memberID", "in": "path", "required": true},
                    {"description": "Данные участника", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.MemberInput"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["members"],
                "summary": "Удалить члена ассоциации",
                "parameters": [{"type": "string", "description": "Member ID", "name": "memberID", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/competitions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Соревнования с открытой регистрацией",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Создать соревнование",
                "parameters": [{"description": "Данные соревнования", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.CompetitionInput"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Нужна роль admin"}}
            }
        },
        "/competitions/{competitionID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Соревнование по ID",
                "parameters": [{"type": "string", "description": "Competition ID", "name": "competitionID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["competitions"],
                "summary": "Изменить соревнование",
                "parameters": [
                    {"type": "string", "description": "Competition ID", "name": "competitionID", "in": "path", "required": true},
                    {"description": "Данные соревнования", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.CompetitionInput"}}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["competitions"],
                "summary": "Удалить соревнование",
                "parameters": [{"type": "string", "description": "Competition ID", "name": "competitionID", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}}
            }
        },
        "/competitions/{competitionID}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Результаты соревнования по пулам",
                "parameters": [{"type": "string", "description": "Competition ID", "name": "competitionID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Записать результат пула",
                "parameters": [
                    {"type": "string", "description": "Competition ID", "name": "competitionID", "in": "path", "required": true},
                    {"description": "Пул и места", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.ResultInput"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Результат уже записан"}}
            }
        },
        "/registrations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "Заявки членов моей ассоциации",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "Заявить члена ассоциации на соревнование",
                "parameters": [{"description": "Соревнование, участник и вес", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegistrationInput"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Ошибка валидации / регистрация закрыта"}, "409": {"description": "Уже заявлен"}}
            }
        }
    },
    "definitions": {
        "models.Association": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "user_id": {"type": "string"},
                "logo_url": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.Member": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "date_of_birth": {"type": "string", "example": "2010-04-01"},
                "type": {"type": "string", "enum": ["adherent", "coach", "referee"]},
                "grade": {"type": "string"},
                "association_id": {"type": "string"}
            }
        },
        "models.Competition": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "date": {"type": "string", "example": "2026-11-14"},
                "location": {"type": "string"},
                "registration_deadline": {"type": "string", "example": "2026-11-01"}
            }
        },
        "models.DashboardState": {
            "type": "object",
            "properties": {
                "loading": {"type": "boolean"},
                "association": {"$ref": "#/definitions/models.Association"},
                "members": {"type": "array", "items": {"$ref": "#/definitions/models.Member"}},
                "competitions": {"type": "array", "items": {"$ref": "#/definitions/models.Competition"}},
                "degraded": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.AdminDashboardState": {
            "type": "object",
            "properties": {
                "loading": {"type": "boolean"},
                "upcoming_competitions": {"type": "array", "items": {"$ref": "#/definitions/models.Competition"}},
                "degraded": {"type": "array", "items": {"type": "string"}}
            }
        },
        "services.MemberInput": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "type": {"type": "string"},
                "grade": {"type": "string"}
            }
        },
        "services.CompetitionInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "date": {"type": "string"},
                "location": {"type": "string"},
                "registration_deadline": {"type": "string"}
            }
        },
        "services.RegistrationInput": {
            "type": "object",
            "properties": {
                "competition_id": {"type": "string"},
                "member_id": {"type": "string"},
                "weight": {"type": "number"}
            }
        },
        "services.ResultInput": {
            "type": "object",
            "properties": {
                "poule_name": {"type": "string"},
                "places": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Association portal API",
	Description:      "Members, competitions and registrations of a sports association.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
