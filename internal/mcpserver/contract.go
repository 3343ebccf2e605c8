package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Ansuz Note Format Contract

Every Markdown note stored in Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – used in search, sidebar, graph
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
created: 2025-01-15                 # OPTIONAL – ISO-8601 date or datetime
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|display text]] when the link text should differ from the target.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` field is required.** It is the primary display name everywhere.
   Notes without one fall back to the first H1 heading, then the filename stem.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
4. **Wikilinks** use double brackets: ` + "`" + `[[Other Note]]` + "`" + `. A target resolves
   case-insensitively against note titles first, then against filename stems
   (no ` + "`" + `.md` + "`" + ` extension; path stems like ` + "`" + `[[folder/note]]` + "`" + ` are OK). Prefer
   linking by title. Links that resolve to nothing are reported by the
   ` + "`" + `find_broken_links` + "`" + ` tool.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.
7. **No HTML** unless absolutely necessary; prefer Markdown equivalents.
8. **Language policy:** file names and directory names MUST be in English (Latin characters).
   Frontmatter keys MUST be in English (they are schema fields). Frontmatter values
   (title, tags, aliases, etc.) and body content may use any language including Cyrillic.

## Editing workflow

- Never rewrite a note wholesale when a targeted change will do. Use
  ` + "`" + `generate_patch` + "`" + ` to propose edits: it stores precise insert/delete/replace
  operations as a pending patch without touching the file.
- Apply with ` + "`" + `apply_patch` + "`" + ` or discard with ` + "`" + `reject_patch` + "`" + `. A patch only
  applies if the note is byte-identical to when it was generated.
- To change a note's title, use ` + "`" + `rename_note` + "`" + ` rather than editing the
  frontmatter: it also rewrites every [[wikilink]] pointing at the note.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference in notes using the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
- Do **not** use relative paths like ` + "`" + `./attachments/...` + "`" + ` — always use ` + "`" + `/attachments/filename` + "`" + `.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
tags:
  - meeting-notes
  - project-x
created: 2025-01-20
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

![Whiteboard photo](/attachments/standup-2025-01-20.jpg)

## Action items

- [[Alice]] to review the [[Design Doc]]
- Bob to update [[project-x/roadmap|the roadmap]]
` + "```" + `
`
