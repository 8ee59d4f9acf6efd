// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LLMService: classification and answer synthesis
//   - EmbeddingService: chunk and request embeddings
//   - CollectionStore / VectorCollection: persistent nearest-neighbour store
//   - PaperIndex: external document search and artefact download
//   - StagingArea: temporary storage for downloaded artefacts
//   - Normaliser / NormaliserRegistry: text extraction
//   - PostProcessorPipeline: chunking
//   - ConfigStore and PromptStore: configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
