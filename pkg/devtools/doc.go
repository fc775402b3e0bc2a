// Package devtools inspects a running engine through the creation
// hook: a Registry records every cell construction, and a Server
// exposes the inventory as JSON plus a live websocket stream.
//
//	reg := devtools.NewRegistry(nil)
//	defer reg.Install()()
//	http.ListenAndServe(":6360", devtools.NewServer(reg))
package devtools
