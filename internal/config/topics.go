package config

const (
	// TopicDocumentIngested is the NSQ topic announcing a finished ingest.
	TopicDocumentIngested = "document.ingested"
)
