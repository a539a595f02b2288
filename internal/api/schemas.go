package api

const signupSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["username", "password", "firstname", "lastname"],
  "properties": {
    "username": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$", "maxLength": 254},
    "password": {
      "type": "string",
      "minLength": 8,
      "maxLength": 200,
      "allOf": [
        {"pattern": "[A-Z]"},
        {"pattern": "[a-z]"},
        {"pattern": "[0-9]"},
        {"pattern": "[^A-Za-z0-9]"}
      ]
    },
    "firstname": {"type": "string", "minLength": 1, "maxLength": 30},
    "lastname": {"type": "string", "minLength": 1, "maxLength": 30}
  }
}`

const signinSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["username", "password"],
  "properties": {
    "username": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$", "maxLength": 254},
    "password": {"type": "string", "minLength": 1, "maxLength": 200}
  }
}`

const updateUserSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "password": {"type": "string", "minLength": 1, "maxLength": 200},
    "firstname": {"type": "string", "minLength": 1, "maxLength": 30},
    "lastname": {"type": "string", "minLength": 1, "maxLength": 30}
  }
}`
