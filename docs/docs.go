// Package docs Swagger 文档
// 使用 `swag init -g cmd/main.go -o docs` 根据控制器注释重新生成完整接口定义
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
    "paths": {},
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth"},
        {"name": "User"},
        {"name": "Shop (店铺管理)"},
        {"name": "Product"},
        {"name": "Cart"},
        {"name": "Order"},
        {"name": "Payment"},
        {"name": "Activity"},
        {"name": "Reservation"},
        {"name": "Notice"},
        {"name": "Merchant"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Jiuba Platform API",
	Description:      "酒吧点单、支付、活动预约后端接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
