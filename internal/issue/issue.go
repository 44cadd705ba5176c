// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	ConfigLoadFailedId
	NoInputsId
	InvalidPackageGroupId
	ArchiveUnreadableId
	EntryCollisionId
	PermissionDeniedId
	FusionFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation pages about this issue type
	extLinks []HttpLink  // external links that might be useful for the user
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

func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# File not found!

A path given on the command line or in the configuration does not exist.

## Things you can try:
- Check the path for typos
- Relative paths in the configuration file are resolved against the
  directory holding the configuration file, not the current directory
- Show the effective configuration:
~~~
$ fusioner config show
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load or validate the fusioner configuration file.

## Configuration file locations (in order of precedence):
1. The file passed with ` + "`--config`" + `
2. ` + "`fusioner.cue`" + ` in the current directory
3. ` + "`~/.config/fusioner/config.cue`" + `

## Things you can try:
- Create a starter configuration:
~~~
$ fusioner config init
~~~

- Check the error message above for the offending field
- Every variant block accepts only ` + "`input`" + `, ` + "`relocations`" + ` and, for forge, ` + "`mixins`" + `

## Example configuration:
~~~cue
package_group: "com.example.mymod"
merged_name:   "MyMod"
version:       "1.0.0"

forge: {
  input: "forge/build/libs"
}
fabric: {
  input: "fabric/build/libs"
}
~~~`,
	}

	noInputsIssue = &Issue{
		id: NoInputsId,
		mdMsg: `
# Nothing to fuse!

None of the configured variants has an input archive, so no output can be built.

## Things you can try:
- Build the platform projects first so their jars exist
- Point each variant at its jar, or at the directory the jar is built into:
~~~cue
forge:  {input: "forge/build/libs"}
fabric: {input: "fabric/build/libs/mymod-fabric-1.0.0.jar"}
~~~

- Run with verbose mode to see which inputs were skipped:
~~~
$ fusioner --verbose fuse
~~~`,
	}

	invalidPackageGroupIssue = &Issue{
		id: InvalidPackageGroupId,
		mdMsg: `
# Invalid package group!

The package group must be a dotted Java package name such as ` + "`com.example.mymod`" + `.

## Things you can try:
- Use dots, not slashes, between segments
- Segments may not start with a digit or be empty
- Set it in the configuration or on the command line:
~~~
$ fusioner fuse --group com.example.mymod
~~~`,
	}

	archiveUnreadableIssue = &Issue{
		id: ArchiveUnreadableId,
		mdMsg: `
# Archive could not be read!

An input is not a jar archive, or the archive is damaged.

## Things you can try:
- Inspect the archive:
~~~
$ fusioner inspect path/to/input.jar
~~~

- Rebuild the platform project and retry
- Make sure the input points at the remapped production jar, not a sources or dev jar`,
	}

	entryCollisionIssue = &Issue{
		id: EntryCollisionId,
		mdMsg: `
# Archive entries collide!

Two entries of one archive ended up at the same name after relocation.

## Common causes:
- A relocation maps one package onto another that already exists in the jar
- The jar already contains a variant-prefixed copy of the package group

## Things you can try:
- Review the ` + "`relocations`" + ` of the variant named above
- Run with verbose mode to see every rule that was applied`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- The output directory is read-only
- The work directory belongs to another user

## Things you can try:
- Check file and directory permissions
- Choose another output:
~~~
$ fusioner fuse --output /tmp/fused
~~~`,
	}

	fusionFailedIssue = &Issue{
		id: FusionFailedId,
		mdMsg: `
# Fusion failed!

The fusion run stopped before the output archive was written. No partial output is left behind.

## Things you can try:
- Run with verbose mode for more details:
~~~
$ fusioner --verbose fuse
~~~

- Keep the workspace to look at the intermediate trees:
~~~
$ fusioner fuse --keep-work-dir
~~~

- Write a report of every step taken:
~~~
$ fusioner fuse --report fusion.toml
~~~`,
	}

	catalogue = []*Issue{
		fileNotFoundIssue,
		configLoadFailedIssue,
		noInputsIssue,
		invalidPackageGroupIssue,
		archiveUnreadableIssue,
		entryCollisionIssue,
		permissionDeniedIssue,
		fusionFailedIssue,
	}

	issues = indexIssues(catalogue)
)

func indexIssues(list []*Issue) map[Id]*Issue {
	m := make(map[Id]*Issue, len(list))
	for _, i := range list {
		m[i.Id()] = i
	}
	return m
}

// Values returns every issue ordered by Id.
func Values() []*Issue {
	return slices.Clone(catalogue)
}

func Get(id Id) *Issue {
	return issues[id]
}
