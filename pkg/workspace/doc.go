// Package workspace models the host workspace that the analysis registry
// reacts to: project resources, the root that enumerates them, a watcher
// reporting added and removed projects, and the version-control head of a
// project directory.
//
// Resources are plain comparable values. Two resources denote the same
// workspace entity exactly when they are equal, so they can be used directly
// as map keys:
//
//	root := workspace.NewDirRoot("/src", workspace.DirRootOptions{})
//	resources, err := root.Resources(ctx)
//
// The watcher is debounced and only reports direct children of the root:
//
//	w, err := workspace.NewWatcher(&workspace.WatcherConfig{Path: "/src"}, nil)
//	err = w.Watch(ctx, func(changes []workspace.Change) { ... })
package workspace
