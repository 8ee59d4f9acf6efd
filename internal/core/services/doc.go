// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A chat turn flows Orchestrator -> Classifier -> fetch_papers tool
// (Fetcher, Ingestor) -> answer_question tool (Answerer) or Responder.
// Services only see ports; concrete adapters are wired in the CLI.
package services
