package mcpserver

// EditingConventions describes how LLM consumers should change parts so
// that repacked packages still open in Office applications.
const EditingConventions = `# relscope Editing Conventions

An Office file (.docx, .xlsx, .pptx and their macro/template variants) is a
ZIP archive of parts. Parts reference each other only through relationship
parts, never through file names.

## Parts

- Part paths are relative to the package root and use forward slashes
  (` + "`" + `word/document.xml` + "`" + `, ` + "`" + `ppt/slides/slide1.xml` + "`" + `).
- Text parts (.xml and .rels) are edited as complete documents.
  ` + "`" + `update_part` + "`" + ` replaces the whole content; there is no patching.
- Binary parts (images, embeddings, fonts) cannot be edited as text.
- Pass the checksum returned by ` + "`" + `read_part` + "`" + ` as ` + "`" + `if_match` + "`" + `
  so concurrent edits are detected instead of overwritten.
- Keep the XML declaration and every namespace declaration of the root element.

## Relationships

- The relationships of ` + "`" + `dir/name.xml` + "`" + ` live in ` + "`" + `dir/_rels/name.xml.rels` + "`" + `.
  Package-level relationships live in ` + "`" + `_rels/.rels` + "`" + ` (shown as ` + "`" + `[Package]` + "`" + `).
- A ` + "`" + `Target` + "`" + ` is resolved against the folder of the owning part:
  ` + "`" + `../media/image1.png` + "`" + ` from ` + "`" + `ppt/slides/slide1.xml` + "`" + ` is ` + "`" + `ppt/media/image1.png` + "`" + `.
  A leading ` + "`" + `/` + "`" + ` makes the target package-absolute.
- ` + "`" + `TargetMode="External"` + "`" + ` targets (hyperlinks) are URLs, not parts.
- Relationship ` + "`" + `Id` + "`" + ` values are unique within one .rels part and are
  what the XML refers to (` + "`" + `r:embed="rId2"` + "`" + `). Renumbering ids breaks the part.

## Adding a part

1. ` + "`" + `create_part` + "`" + ` with the new content.
2. Add a ` + "`" + `<Relationship>` + "`" + ` pointing at it to the owner's .rels part.
3. Add an ` + "`" + `<Override>` + "`" + ` for it to ` + "`" + `[Content_Types].xml` + "`" + ` unless its
   extension already has a ` + "`" + `<Default>` + "`" + ` entry.

## Removing a part

Delete the part, then remove every relationship targeting it (use
` + "`" + `get_dependencies` + "`" + ` to find the referencing parts) and its content-type override.

## Saving

` + "`" + `save_package` + "`" + ` rewrites the archive. Untouched parts are copied byte for byte.
Without a path, uploads are saved as ` + "`" + `<name>_edited.<ext>` + "`" + ` and workspace
files are overwritten in place.
`
