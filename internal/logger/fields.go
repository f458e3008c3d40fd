package logger

// Field names shared by every log call so that entries can be queried
// consistently.
const (
	FieldUsername  = "username"
	FieldSessionID = "sessionId"
	FieldNoteID    = "noteId"
	FieldOperation = "operation"
	FieldCursor    = "cursor"
	FieldCount     = "count"
	FieldDuration  = "duration"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldRemote    = "remote"
)
