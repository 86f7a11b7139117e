// Package vector provides Qdrant vector database client.
//
// Implements vector storage and similarity search using Qdrant with
// HNSW configuration (m=16, ef_construct=100) and cosine distance.
package vector
