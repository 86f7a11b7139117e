package eval

// DefaultFixture is a small built-in fixture for smoke-testing scorer and
// threshold changes without hand-authoring a new one each time, the same
// role the reference benchmark's bundled LOCOMO question set plays.
func DefaultFixture() Fixture {
	return Fixture{
		Memories: []MemoryFixture{
			{Content: "the build pipeline runs go vet and staticcheck before unit tests", Importance: 0.6},
			{Content: "production deploys require a signed-off PR and a green CI run", Importance: 0.7},
			{Content: "the on-call rotation is tracked in the ops calendar, swapped via Slack", Importance: 0.4},
			{Content: "database migrations are additive only; no destructive ALTER in a single release", Importance: 0.8},
			{Content: "the team prefers small PRs over large batched changes", Importance: 0.5},
		},
		Queries: []QueryFixture{
			{Query: "what does the build pipeline check before tests run", ExpectedSubstr: "go vet"},
			{Query: "what is required before a production deploy", ExpectedSubstr: "signed-off PR"},
			{Query: "how are on-call swaps coordinated", ExpectedSubstr: "ops calendar"},
			{Query: "are destructive migrations allowed", ExpectedSubstr: "additive only"},
		},
	}
}
