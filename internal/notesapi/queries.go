package notesapi

const listNotesQuery = `
  query ListNotes($filter: TableNotesFilterInput, $limit: Int, $nextToken: String) {
    listNotes(filter: $filter, limit: $limit, nextToken: $nextToken) {
      items { id name }
      nextToken
    }
  }
`

const createNoteMutation = `
  mutation CreateNotes($input: CreateNotesInput!) {
    createNotes(input: $input) { id name }
  }
`

const deleteNoteMutation = `
  mutation DeleteNotes($input: DeleteNotesInput!) {
    deleteNotes(input: $input) { id }
  }
`
