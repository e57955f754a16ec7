// Package manifest reads package.json files into a validated internal schema.
//
// Manifests are loosely typed in the wild: dependency maps sometimes hold
// non-string values, "bin" may be a string or an object, "exports" is an
// arbitrarily nested condition tree. [Parse] maps all of that onto [Manifest]
// at the ingestion boundary so the scanner, the stats engine and the graph
// assembler never look at raw JSON.
//
// Dependency maps are decoded into [Deps], which preserves declaration
// order. Order matters downstream: graph expansion visits dependencies in
// the order they were declared, and node ids are assigned in visit order.
//
//	m, err := manifest.Read("packages/web/package.json")
//	if err != nil {
//	    return err
//	}
//	for _, d := range m.All() {
//	    fmt.Println(d.Kind, d.Name, d.Range)
//	}
package manifest
