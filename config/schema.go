package config

// configSchema is the JSON Schema the configuration file is checked against
// before decoding. Durations are nanosecond integers, matching Go's JSON
// encoding of time.Duration.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "platform": {
      "type": "object",
      "properties": {
        "org": {"type": "string", "minLength": 1},
        "id": {"type": "string", "minLength": 1},
        "namespace": {"type": "string"}
      },
      "required": ["org", "id"]
    },
    "store": {
      "type": "object",
      "properties": {
        "mode": {"type": "string", "enum": ["memory", "nats"]},
        "nats": {
          "type": "object",
          "properties": {
            "url": {"type": "string"},
            "subject": {"type": "string"},
            "max_reconnects": {"type": "integer"},
            "reconnect_wait": {"type": "integer", "minimum": 0},
            "request_timeout": {"type": "integer", "minimum": 0}
          }
        }
      }
    },
    "gateway": {
      "type": "object",
      "properties": {
        "listen": {"type": "string"},
        "request_timeout": {"type": "integer", "minimum": 0}
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "listen": {"type": "string"},
        "path": {"type": "string"}
      }
    },
    "scoring": {
      "type": "object",
      "properties": {
        "thresholds": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "level": {
                "type": "string",
                "enum": ["none", "low", "moderate", "high", "critical"]
              },
              "min": {"type": "number", "minimum": 0, "maximum": 10}
            },
            "required": ["level", "min"]
          }
        }
      }
    }
  }
}`
