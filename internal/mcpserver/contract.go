package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Eihwaz Note Format Contract

Every Markdown note stored in Eihwaz SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # RECOMMENDED - used in search and rankings
tags:                               # OPTIONAL - YAML list; used for filtering
  - tag-one
  - tag-two
created: 2026-01-15                 # OPTIONAL - ISO-8601 date or datetime
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use ![[target]] to embed another note or asset.
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "`" + `---` + "`" + ` fences must be the
   first thing in the file (no leading blank lines). Notes without
   frontmatter are plain Markdown from byte zero.
2. **Titles** come from the frontmatter ` + "`" + `title` + "`" + ` field, falling back to the
   first H1 heading.
3. **Tags** may live in frontmatter or inline as ` + "`" + `#tag` + "`" + ` tokens
   (letters, digits, ` + "`" + `_` + "`" + `, ` + "`" + `/` + "`" + `, ` + "`" + `-` + "`" + `); both are indexed.
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension, path separators OK: ` + "`" + `[[folder/note]]` + "`" + `).
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. The extension is
   appended automatically when omitted.
6. **Hidden paths** (any dot-prefixed segment) are outside the vault and
   rejected.
7. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference in notes using the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
---
title: Reading list
tags:
  - books
---

# Reading list

Currently reading [[the-go-programming-language]].

Next up: [[distributed-systems/designing-data-intensive-applications|DDIA]].
` + "```" + `
`
