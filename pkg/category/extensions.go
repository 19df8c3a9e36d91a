// SPDX-License-Identifier: MPL-2.0

package category

// Extension tables. The values are domain data shared with the report
// template and are kept exactly as delivered, including mixed-case entries.
var (
	executionExtensions = []string{
		".exe", ".dll", ".so", ".bin", ".msi", ".bat", ".sh", ".app", ".dmg", ".jar",
		".com", ".out", ".csh", ".run", ".cmd", ".ps1", ".action", ".elf", ".o",
	}

	configurationExtensions = []string{
		".ini", ".conf", ".config", ".cfg", ".json", ".xml", ".yaml", ".yml", ".plist",
		".properties", ".env", ".toml", ".cnf", ".prefs", ".settings", ".reg", ".inf",
		".desktop", ".md",
	}

	databaseExtensions = []string{
		".db", ".sqlite", ".sqlite3", ".mdb", ".accdb", ".sql", ".dat", ".dbf", ".sdf",
		".myd", ".myi", ".frm", ".gdb", ".fdb", ".abs", ".kdb", ".kdbx", ".csv", ".mdf",
		".ldf",
	}

	projectExtensions = []string{
		".sln", ".csproj", ".vbproj", ".vcxproj", ".fsproj", ".xcodeproj", ".xcworkspace",
		".gradle", ".idea", ".project", ".classpath", ".Rproj", ".sublime-project",
		".sublime-workspace", ".vscode", ".unity", ".uproject",
	}

	sourceExtensions = []string{
		".py", ".java", ".c", ".cpp", ".cs", ".js", ".ts", ".html", ".css", ".php", ".rb",
		".go", ".rs", ".swift", ".kt", ".kts", ".scala", ".r", ".m", ".pl", ".lua", ".scss",
		".vue", ".jsx", ".tsx",
	}

	imageExtensions = []string{
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp", ".svg", ".ico",
		".heic", ".heif", ".jp2", ".jxr", ".wdp", ".avif", ".raw", ".cr2", ".nef", ".arw",
		".orf", ".sr2", ".eps", ".psd", ".ai", ".indd",
	}
)

// lookupOrder is the precedence in which extension tables are consulted.
// An extension listed in more than one table resolves to the earliest one.
var lookupOrder = []struct {
	category   Category
	extensions []string
}{
	{Execution, executionExtensions},
	{Project, projectExtensions},
	{Source, sourceExtensions},
	{Configuration, configurationExtensions},
	{Database, databaseExtensions},
	{Image, imageExtensions},
}

// Extensions returns a copy of the extension table for c, in table order.
// Categories without a table return nil.
func Extensions(c Category) []string {
	for _, entry := range lookupOrder {
		if entry.category == c {
			out := make([]string, len(entry.extensions))
			copy(out, entry.extensions)
			return out
		}
	}
	return nil
}
