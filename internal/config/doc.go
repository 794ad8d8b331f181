// Package config loads and validates runtime settings from layered sources:
// process environment first, then an optional flat YAML file. Loading fails
// fast on missing chain endpoints or contract addresses; optional subsystems
// such as the relayer, the agent cache, and JWT authentication are detected
// from the keys actually present.
package config
