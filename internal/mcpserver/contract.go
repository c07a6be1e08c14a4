package mcpserver

// BookFormatContract describes the book record and the on-disk document so
// that LLM consumers can add books or hand-edit the store file correctly.
const BookFormatContract = `# Shelf Book Format

Every book in the library is one record with these fields.

| field  | type    | rule                                              |
|--------|---------|---------------------------------------------------|
| id     | string  | assigned by the library, never supplied on add    |
| title  | string  | required, surrounding whitespace is trimmed       |
| author | string  | required                                          |
| year   | integer | required, 1800 to 2100 inclusive                  |
| genre  | string  | required, free-form; "SciFi" and "scifi" differ   |
| read   | boolean | defaults to false                                 |

## Rules

1. Titles are not unique. Title lookups use exact, case-sensitive equality
   and act on the first match, except delete which removes every match.
2. Search matches a case-insensitive substring of the title or the author.
   An empty query matches nothing.
3. Prefer the id for update_book and delete_book; titles are a fallback.

## Store file

The json driver keeps the whole collection in one UTF-8 document: a JSON
array of records in insertion order, pretty-printed, trailing newline.

` + "```" + `json
[
  {
    "id": "1f2e3d4c5b6a",
    "title": "Dune",
    "author": "Frank Herbert",
    "year": 1965,
    "genre": "SciFi",
    "read": true
  }
]
` + "```" + `

Records without an id are accepted and get one on the next load.

## Bulk import

The import command and POST /api/books/import take a YAML or JSON list of
records (or a mapping with a books key). An id, when given, is kept; an
id already in the library rejects the whole import. The import command
also reads Markdown book cards:

` + "```" + `markdown
---
title: Emma
author: Jane Austen
year: 1815
read: false
tags: [novel]
---

# Emma
` + "```" + `

A card without a genre takes its first tag.
`
