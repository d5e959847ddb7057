// Package llm streams structured JSON from hosted language models.
//
// A [Provider] sends one [Request] (system prompt, user prompt and the JSON
// Schema the answer must follow) and reports the accumulated response text
// to a callback as it grows. Two providers are built in:
//
//   - [OpenAI]: Chat Completions with stream=true and a strict json_schema
//     response format.
//   - [Anthropic]: the Messages API with stream=true; the schema is embedded
//     in the system prompt.
//
// Providers never interpret the text; decoding partial JSON into notes is the
// caller's job (see notes.DecodePartial). Requests are retried while the
// upstream answers 429 or 5xx, but only before any text has been delivered.
//
// [NotesRequest] and [ExpandRequest] build the two prompts the application
// uses: summarizing a transcript into a notes tree, and explaining a
// selected passage as one additional key point.
package llm
