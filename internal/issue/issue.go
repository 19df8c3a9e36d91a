// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RootNotFoundId Id = iota + 1
	ManifestNotFoundId
	ManifestParseErrorId
	ConfigLoadFailedId
	RenderFailedId
	PublishFailedId
	DescriberUnavailableId
	PermissionDeniedId
	LedgerFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown with the given glamour
// style ("dark", "light", "notty", or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	rootNotFoundIssue = &Issue{
		id: RootNotFoundId,
		mdMsg: `
# Delivery root not found!

The directory (or .zip archive) given to ` + "`build`" + ` does not exist or is not a directory.

## Things you can try:
- Check the path for typos
- Pass the extracted delivery directory, or the delivery .zip itself:
~~~
$ make-sps build ./delivery
$ make-sps build ./delivery.zip
~~~`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No project manifest found!

A report needs at least a device name. It comes from a project manifest in
the delivery root, or from the ` + "`--device`" + ` flag.

## Manifest file names (in order of precedence):
1. make-sps.yaml
2. make-sps.yml
3. make-sps.toml
4. make-sps.cue
5. make-sps.json

## Things you can try:
- Create a starter manifest:
~~~
$ make-sps manifest init ./delivery
~~~

- Or skip the manifest and name the device directly:
~~~
$ make-sps build ./delivery --device RDR-1 --version 1.0
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the project manifest!

The manifest has a syntax error or a value the schema does not accept.

## Things you can try:
- Validate it and read the reported field path:
~~~
$ make-sps manifest validate ./delivery/make-sps.yaml
~~~

- Check that every CSU has a unique name
- Check that CSU directories are relative and stay inside the delivery
- Use "MD5" or "SHA256" for checksum_type

## Example manifest:
~~~yaml
project:
  device: RDR-1
  version: "1.2"
  partnumber: PN-RDR
  checksum_type: SHA256
  csu:
    - csu: core
      dir: src/core
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show where make-sps looks for it:
~~~
$ make-sps config path
~~~

- Regenerate a default file:
~~~
$ make-sps config init
~~~

- Check environment overrides; every key can be set as
  MAKESPS_<SECTION>_<KEY>, for example MAKESPS_DESCRIBE_PROVIDER=ollama`,
	}

	renderFailedIssue = &Issue{
		id: RenderFailedId,
		mdMsg: `
# Failed to write the report!

The report was built but could not be rendered or written.

## Things you can try:
- Check that the output directory exists and is writable
- Pick a supported format: markdown, terminal, json, hwpx
~~~
$ make-sps build ./delivery --format markdown --out sps.md
~~~`,
	}

	publishFailedIssue = &Issue{
		id: PublishFailedId,
		mdMsg: `
# Failed to publish the report!

The rendered report could not be uploaded to the object store.

## Things you can try:
- Check publish.s3.endpoint and publish.s3.bucket in your config
- Provide credentials through the environment or a .env file:
~~~
MAKESPS_PUBLISH_S3_ACCESS_KEY=...
MAKESPS_PUBLISH_S3_SECRET_KEY=...
~~~

- Set publish.s3.use_ssl to false for plain-HTTP endpoints`,
	}

	describerUnavailableIssue = &Issue{
		id: DescriberUnavailableId,
		mdMsg: `
# File descriptions are unavailable!

The configured language model backend could not be reached. The report is
still produced; descriptions fall back to each file's leading comment.

## Things you can try:
- For Ollama, make sure the server is running and describe.api_base points at it:
~~~
$ ollama serve
~~~

- For Gemini, set GEMINI_API_KEY in the environment or a .env file
- Disable descriptions with describe.provider: "none"`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to read a delivery file or write the report.

## Things you can try:
- Check file and directory permissions in the delivery
- Write the report to a directory you own with --out
- Use fingerprint.on_error: "sentinel" to keep unreadable files in the report`,
	}

	ledgerFailedIssue = &Issue{
		id: LedgerFailedId,
		mdMsg: `
# Failed to record the run in the ledger!

The report was produced but the run history could not be stored.

## Things you can try:
- Check that the PostgreSQL server is reachable:
~~~
$ psql "$MAKESPS_LEDGER_POSTGRES_DSN" -c 'select 1'
~~~

- Check that the user may create tables in the target database`,
	}

	issues = map[Id]*Issue{
		rootNotFoundIssue.Id():         rootNotFoundIssue,
		manifestNotFoundIssue.Id():     manifestNotFoundIssue,
		manifestParseErrorIssue.Id():   manifestParseErrorIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		renderFailedIssue.Id():         renderFailedIssue,
		publishFailedIssue.Id():        publishFailedIssue,
		describerUnavailableIssue.Id(): describerUnavailableIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
		ledgerFailedIssue.Id():         ledgerFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	vals := maps.Values(issues)
	slices.SortFunc(vals, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return vals
}

func Get(id Id) *Issue {
	return issues[id]
}
