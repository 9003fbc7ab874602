// Package config loads, normalizes, and validates vidpress configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as GEMINI_API_KEY and OPENAI_API_KEY. The Config
// type centralizes every knob the assembly engine and CLI need so workspace
// directories, image constraints, and collaborator credentials are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enumerations, and clear validation errors.
package config
