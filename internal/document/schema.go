package document

// routineSchemaURL identifies the routine document schema in the compiler.
const routineSchemaURL = "https://routinegraph.dev/schemas/routine.json"

// routineSchemaJSON is the JSON Schema of a routine document.
const routineSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://routinegraph.dev/schemas/routine.json",
  "type": "object",
  "required": ["nodes", "links"],
  "properties": {
    "routineId": { "type": "string" },
    "translations": { "$ref": "#/$defs/translations" },
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "links": {
      "type": "array",
      "items": { "$ref": "#/$defs/link" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "id": {
      "type": "string",
      "minLength": 1
    },
    "translations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["language"],
        "properties": {
          "language": { "type": "string", "minLength": 1 },
          "title": { "type": "string" },
          "description": { "type": "string" }
        },
        "additionalProperties": false
      }
    },
    "position": {
      "type": ["integer", "null"],
      "minimum": 0
    },
    "node": {
      "type": "object",
      "required": ["id", "kind"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "kind": { "enum": ["Start", "End", "RoutineList"] },
        "columnIndex": { "$ref": "#/$defs/position" },
        "rowIndex": { "$ref": "#/$defs/position" },
        "data": { "type": "object" },
        "translations": { "$ref": "#/$defs/translations" }
      },
      "additionalProperties": false,
      "allOf": [
        {
          "if": { "properties": { "kind": { "const": "End" } } },
          "then": { "properties": { "data": { "$ref": "#/$defs/endData" } } }
        },
        {
          "if": { "properties": { "kind": { "const": "RoutineList" } } },
          "then": { "properties": { "data": { "$ref": "#/$defs/routineListData" } } }
        }
      ]
    },
    "endData": {
      "type": "object",
      "properties": {
        "wasSuccessful": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "routineListData": {
      "type": "object",
      "properties": {
        "isOrdered": { "type": "boolean" },
        "isOptional": { "type": "boolean" },
        "items": {
          "type": "array",
          "items": { "$ref": "#/$defs/item" }
        }
      },
      "additionalProperties": false
    },
    "item": {
      "type": "object",
      "required": ["id", "routine"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "index": { "type": "integer", "minimum": 0 },
        "isOptional": { "type": "boolean" },
        "routine": { "$ref": "#/$defs/routineRef" },
        "translations": { "$ref": "#/$defs/translations" }
      },
      "additionalProperties": false
    },
    "routineRef": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "complexity": { "type": "integer", "minimum": 0 },
        "nodesCount": { "type": "integer", "minimum": 0 },
        "translations": { "$ref": "#/$defs/translations" }
      },
      "additionalProperties": false
    },
    "link": {
      "type": "object",
      "required": ["id", "fromId", "toId"],
      "properties": {
        "id": { "$ref": "#/$defs/id" },
        "fromId": { "$ref": "#/$defs/id" },
        "toId": { "$ref": "#/$defs/id" },
        "condition": { "type": "string" },
        "conditionEngine": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`
