// Package agent connects a chat model to a terminal session.
//
// The model is offered one function tool, raw_input, taking an escaped byte
// string and a delay in seconds:
//
//	{"str": "ls -la\\n", "float": 0.5}
//
// Each call goes through the session's approval gate. The result handed back
// to the model is a JSON object with the approval flag and the rendered
// screen, or an error message when the arguments were unusable:
//
//	{"approved": true, "screen": "$ ls -la\n..."}
//
// Conversation history is kept across prompts and dropped by Reset.
package agent
