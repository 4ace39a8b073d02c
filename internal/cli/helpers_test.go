package cli

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// fixtureSources is a small IFS Cloud source tree.
var fixtureSources = map[string]string{
	"order/source/order/database/CustomerOrder.plsql": `PROCEDURE Release_Order (order_no_ IN VARCHAR2)
IS
BEGIN
   Customer_Order_Line_API.Release(order_no_);
END Release_Order;
`,
	"order/source/order/database/CustomerOrderLine.plsql": `PROCEDURE Release (order_no_ IN VARCHAR2)
IS
BEGIN
   Fnd_Session_API.Get_Fnd_User;
END Release;
`,
	"order/model/order/CustomerOrder.entity": "entityname CustomerOrder;\ncomponent ORDER;\n",
	"fndbas/source/fndbas/database/FndSession.plsql": `FUNCTION Get_Fnd_User RETURN VARCHAR2
IS
BEGIN
   RETURN USER;
END Get_Fnd_User;
`,
}

// writeSourceZip writes fixtureSources under a top-level "ifs/" directory,
// plus a README that the importer skips.
func writeSourceZip(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entries := map[string]string{"ifs/README.txt": "not indexed"}
	for rel, content := range fixtureSources {
		entries["ifs/"+rel] = content
	}
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

// seedVersion writes fixtureSources into a version directory and, when
// build is set, builds its indexes.
func seedVersion(t *testing.T, dataDir, version string, build bool) dirs.Layout {
	t.Helper()

	layout := dirs.NewLayout(dirs.VersionDirectory(dataDir, version))
	if err := layout.Create(); err != nil {
		t.Fatal(err)
	}
	for rel, content := range fixtureSources {
		full := filepath.Join(layout.Source, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if build {
		if _, err := search.Build(context.Background(), layout, search.BuildOptions{Workers: 2}); err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
	}
	return layout
}
