// Package notion provides a minimal client for the Notion API.
//
// It covers what the relay needs:
//   - Mapping of flat caller supplied fields to Notion property values
//   - One outbound call per operation (create, update, query, read)
//   - A response type that keeps Notion's status code and body untouched
package notion
