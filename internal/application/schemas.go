// internal/application/schemas.go
package application

import (
	"fmt"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
)

// Minecraft usernames: 3-16 word characters.
const minecraftNamePattern = "^[A-Za-z0-9_]{3,16}$"

func personalSchema(cfg config.ValidationConfig) string {
	return fmt.Sprintf(`{
		"type": "object",
		"required": ["name", "age", "minecraftName"],
		"additionalProperties": false,
		"properties": {
			"name":          {"type": "string", "minLength": 2, "maxLength": 64},
			"age":           {"type": "integer", "minimum": %d, "maximum": %d},
			"minecraftName": {"type": "string", "pattern": "%s"},
			"timezone":      {"type": "string", "maxLength": 64}
		}
	}`, cfg.MinAge, cfg.MaxAge, minecraftNamePattern)
}

func aboutSchema(cfg config.ValidationConfig) string {
	return fmt.Sprintf(`{
		"type": "object",
		"required": ["aboutYou", "whyJoin", "experience"],
		"additionalProperties": false,
		"properties": {
			"aboutYou":   {"type": "string", "minLength": %[1]d, "maxLength": %[2]d},
			"whyJoin":    {"type": "string", "minLength": %[1]d, "maxLength": %[2]d},
			"experience": {"type": "string", "minLength": %[1]d, "maxLength": %[2]d}
		}
	}`, cfg.MinAnswerLength, cfg.MaxAnswerLength)
}

func buildsSchema(cfg config.ValidationConfig) string {
	return fmt.Sprintf(`{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"note": {"type": "string", "maxLength": %d}
		}
	}`, cfg.MaxAnswerLength)
}

func communitySchema(cfg config.ValidationConfig) string {
	return fmt.Sprintf(`{
		"type": "object",
		"required": ["rulesAccepted"],
		"additionalProperties": false,
		"properties": {
			"rulesAccepted": {"type": "boolean"},
			"referral":      {"type": "string", "maxLength": %d}
		}
	}`, cfg.MaxAnswerLength)
}
