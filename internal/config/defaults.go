package config

// DefaultConfigYAML contains the default configuration YAML content,
// used by `cursorflow init` to scaffold a new run config.
const DefaultConfigYAML = `# cursorflow run configuration
# Values not specified here use the built-in defaults documented below.

log:
  level: info
  format: auto

scheduler:
  concurrency: 3
  tick_interval: 10s

recovery:
  continue_threshold: 3m
  restart_threshold: 5m
  restart_bound: 2

resolver:
  auto_resolve: true
  resolution_worktree_dir: .cursorflow/resolution

log_parser:
  max_file_size: 52428800 # 50MiB
  max_files: 5

executor:
  name: claude
  path: claude

git:
  worktree_dir: .worktrees
  remote: origin

status:
  enabled: false
  addr: 127.0.0.1:8765

# Each entry under lanes describes one independent sequence of tasks.
# lanes:
#   backend:
#     base_branch: main
#     pipeline_branch: release/2026-07-31
#     tasks:
#       - name: setup
#         prompt: "Scaffold the service skeleton."
#       - name: build
#         prompt: "Implement the handlers."
#         dependencies: ["setup"]
`
