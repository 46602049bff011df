package config

// configSchema is the JSON schema the config file is checked against
// before unmarshalling. Keeping it strict catches typos in section and
// key names early instead of silently falling back to defaults.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "host": {"type": "string"},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "max_upload_mb": {"type": "integer", "minimum": 1},
        "rate_limit_per_minute": {"type": "integer", "minimum": 0}
      }
    },
    "session": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "timeout_minutes": {"type": "integer", "minimum": 1},
        "sweep_interval_seconds": {"type": "integer", "minimum": 1},
        "uploads_dir": {"type": "string"}
      }
    },
    "ai": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "provider": {"type": "string", "enum": ["gemini", "anthropic", "openai"]},
        "api_key": {"type": "string"},
        "model": {"type": "string"}
      }
    },
    "gateway": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "shared_secret": {"type": "string"}
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["trace", "debug", "info", "warn", "error"]},
        "file": {"type": "string"},
        "pretty": {"type": "boolean"},
        "redaction": {"type": "boolean"}
      }
    }
  }
}`
