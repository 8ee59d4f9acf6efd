// Package connectors holds sources that feed documents into the ingestor
// from outside the chat pipeline.
package connectors
