// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators provides abstractions for input validation and
// enforcement of shape rules across the application.
//
// Core concepts:
//   - Validator: generic interface to validate arbitrary values or structures.
//     Supports optional field-level scoping for targeted validation.
//   - PayloadValidateFunc: per-entity-type payload hook. The engine ships
//     shape-only defaults; the business layer can register richer ones.
//
// Usage patterns:
//  1. Implement Validator to encode domain-specific validation logic.
//  2. Inject Validator implementations into services or handlers.
//  3. Call Validate with context, value, and optional field names to enforce rules.
//
// This package decouples validation logic from transport layers and storage,
// enabling reusable, composable, and testable validation strategies.
package validators

import (
	"context"
	"encoding/json"
)

// Validator defines a generic validation interface for arbitrary input values.
// Implementations may perform structural validation, semantic checks,
// cross-field rules.
type Validator interface {

	// Validate validates the provided input and optionally
	// restricts validation to specific named fields.
	Validate(context.Context, any, ...string) error
}

// PayloadValidateFunc checks the opaque payload of one entity type.
// The engine treats payload content as external business territory; a
// registered func is the hook through which that territory talks back.
type PayloadValidateFunc func(ctx context.Context, payload json.RawMessage) error

// PayloadRegistry exposes registration of payload validators so the
// business layer can override or extend the shipped shape checks.
type PayloadRegistry interface {

	// RegisterPayloadValidator installs fn for the given entity type,
	// replacing any previously registered validator.
	RegisterPayloadValidator(entityType string, fn PayloadValidateFunc)
}
