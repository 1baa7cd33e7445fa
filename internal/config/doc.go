// Package config loads the toolrouter configuration.
//
// Configuration lives in a single YAML file (~/.toolrouter/config.yaml by
// default). A missing file is created with defaults on first load. Every key
// can be overridden through the environment with the TOOLROUTER_ prefix,
// dots becoming underscores:
//
//	TOOLROUTER_ROUTER_SIMILARITY_THRESHOLD=0.4
//	TOOLROUTER_EMBEDDING_PROVIDER=ollama
//	TOOLROUTER_CACHE_BACKEND=sqlite
//
// The file has five sections:
//
//	router:    routing pipeline settings (toolrouter.Config)
//	embedding: which embedding backend to use and how to reach it
//	cache:     where tool embeddings are persisted
//	catalog:   the tool catalog file
//	logging:   log level and destination
package config
