package dash

// Action is one entry of the dashboard action menu. The same table feeds
// the rendered menu and the key dispatcher, so the two can never disagree.
type Action struct {
	Key   string
	Label string
	Run   func(m *Model)
}

// actionMap is the single source of truth for operation key bindings.
var actionMap = []Action{
	{Key: "1", Label: "Install Package", Run: func(m *Model) { m.startInstall() }},
	{Key: "2", Label: "Run Benchmark", Run: func(m *Model) { m.engine.StartBench() }},
	{Key: "3", Label: "System Doctor", Run: func(m *Model) { m.engine.StartDoctor() }},
	{Key: "4", Label: "Cancel Operation", Run: func(m *Model) { m.engine.Cancel() }},
}

// ActionMap exposes the bindings for rendering and tests.
func ActionMap() []Action {
	return actionMap
}

// lookupAction finds the action bound to a key, or nil.
func lookupAction(key string) *Action {
	for i := range actionMap {
		if actionMap[i].Key == key {
			return &actionMap[i]
		}
	}
	return nil
}
