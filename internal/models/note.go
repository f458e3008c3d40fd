package models

// Note is a record held by the remote notes API. ID is assigned remotely.
type Note struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NotePage is one page of a listNotes response. A nil NextToken means
// there are no further pages.
type NotePage struct {
	Items     []Note  `json:"items"`
	NextToken *string `json:"nextToken"`
}

func (p *NotePage) HasMore() bool {
	return p != nil && p.NextToken != nil && *p.NextToken != ""
}
