// Package models defines domain entities and persistence interfaces for the trainx training client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged with the training backend
//   - [Dataset] : The file selected for upload
//   - [ModelType] : Enumerated learning algorithm passed through to the backend
//   - [TrainingSession] : Response to a start-training request, keyed by run ID
//   - [Progress] : One progress poll response
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Run] : A recorded training run with its last known status
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
