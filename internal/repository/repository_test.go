package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gabapcia/chainsentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	networkJSON = `{
		"network_type": "evm",
		"slug": "ethereum",
		"name": "Ethereum Mainnet",
		"rpc_urls": [{"url": "https://eth.example.com", "weight": 100}],
		"block_time_ms": 12000,
		"confirmation_blocks": 12,
		"cron_schedule": "@every 1m",
		"store_blocks": true
	}`

	monitorJSON = `{
		"name": "large-transfers",
		"networks": ["ethereum"],
		"paused": false,
		"addresses": [{"address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}],
		"match_conditions": {
			"functions": [],
			"events": [{"signature": "Transfer(address,address,uint256)", "expression": "value > 10000000000"}],
			"transactions": [{"status": "Success"}]
		},
		"triggers": ["ops-slack"]
	}`

	slackTriggerJSON = `{
		"name": "ops-slack",
		"trigger_type": "slack",
		"config": {
			"slack_url": "https://hooks.slack.com/services/T0/B0/XX",
			"message": {"title": "Transfer alert", "body": "Transfer of ${event_0_value}"}
		}
	}`
)

// writeConfigTree lays out a full configuration directory.
func writeConfigTree(t *testing.T, networks, monitors, triggers map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for dir, files := range map[string]map[string]string{
		"networks": networks,
		"monitors": monitors,
		"triggers": triggers,
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		for name, content := range files {
			require.NoError(t, os.WriteFile(filepath.Join(root, dir, name), []byte(content), 0o644))
		}
	}
	return root
}

func TestLoad(t *testing.T) {
	t.Run("loads a complete valid tree", func(t *testing.T) {
		root := writeConfigTree(t,
			map[string]string{"ethereum.json": networkJSON},
			map[string]string{"large-transfers.json": monitorJSON},
			map[string]string{"ops-slack.json": slackTriggerJSON},
		)

		repos, err := Load(root)
		require.NoError(t, err)

		network, ok := repos.Networks.Get("ethereum")
		require.True(t, ok)
		assert.Equal(t, model.ChainKindEVM, network.Kind)
		assert.Equal(t, uint64(12), network.ConfirmationBlocks)
		assert.True(t, network.StoreBlocks)

		monitor, ok := repos.Monitors.Get("large-transfers")
		require.True(t, ok)
		assert.Equal(t, []string{"ethereum"}, monitor.Networks)
		require.Len(t, monitor.MatchConditions.Events, 1)
		assert.Equal(t, model.TxStatusSuccess, monitor.MatchConditions.Transactions[0].Status)

		trigger, ok := repos.Triggers.Get("ops-slack")
		require.True(t, ok)
		assert.Equal(t, model.TriggerTypeSlack, trigger.Type)
		require.NotNil(t, trigger.Slack)
		assert.Equal(t, "Transfer of ${event_0_value}", trigger.Slack.Message.Body)
	})

	t.Run("monitor referencing an unknown network fails", func(t *testing.T) {
		monitor := `{
			"name": "ghost", "networks": ["unknown"],
			"match_conditions": {"functions": [], "events": [], "transactions": []},
			"triggers": []
		}`

		root := writeConfigTree(t,
			map[string]string{"ethereum.json": networkJSON},
			map[string]string{"ghost.json": monitor},
			nil,
		)

		_, err := Load(root)

		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorIs(t, err, ErrUnknownNetworkReference)
	})

	t.Run("monitor referencing an unknown trigger fails", func(t *testing.T) {
		root := writeConfigTree(t,
			map[string]string{"ethereum.json": networkJSON},
			map[string]string{"large-transfers.json": monitorJSON},
			nil,
		)

		_, err := Load(root)

		assert.ErrorIs(t, err, ErrUnknownTriggerReference)
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		root := writeConfigTree(t,
			map[string]string{"ethereum.json": "{broken"},
			nil, nil,
		)

		_, err := Load(root)

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("network missing required fields fails validation", func(t *testing.T) {
		root := writeConfigTree(t,
			map[string]string{"bad.json": `{"network_type": "evm", "slug": "x"}`},
			nil, nil,
		)

		_, err := Load(root)

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("an empty tree is valid", func(t *testing.T) {
		repos, err := Load(t.TempDir())

		require.NoError(t, err)
		assert.Empty(t, repos.Networks.All())
		assert.Empty(t, repos.Monitors.All())
		assert.Empty(t, repos.Triggers.All())
	})
}

func TestLoadTriggers_MapForm(t *testing.T) {
	t.Run("accepts a map of trigger-name to trigger object", func(t *testing.T) {
		mapForm := `{
			"ops-slack": ` + slackTriggerJSON + `,
			"ops-webhook": {
				"trigger_type": "webhook",
				"config": {
					"url": "https://alerts.example.com/hook",
					"message": {"title": "", "body": "amount=${function_0_2}"}
				}
			}
		}`

		root := writeConfigTree(t, nil, nil, map[string]string{"all.json": mapForm})

		triggers, err := LoadTriggers(filepath.Join(root, "triggers"))
		require.NoError(t, err)

		slack, ok := triggers.Get("ops-slack")
		require.True(t, ok)
		assert.Equal(t, model.TriggerTypeSlack, slack.Type)

		webhook, ok := triggers.Get("ops-webhook")
		require.True(t, ok, "map key should supply the missing name")
		require.NotNil(t, webhook.Webhook)
		assert.Equal(t, "https://alerts.example.com/hook", webhook.Webhook.URL)
	})

	t.Run("duplicate trigger names across files fail", func(t *testing.T) {
		root := writeConfigTree(t, nil, nil, map[string]string{
			"a.json": slackTriggerJSON,
			"b.json": slackTriggerJSON,
		})

		_, err := LoadTriggers(filepath.Join(root, "triggers"))

		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestMonitorRepository_ActiveForNetwork(t *testing.T) {
	paused := `{
		"name": "paused-monitor", "networks": ["ethereum"], "paused": true,
		"match_conditions": {"functions": [], "events": [], "transactions": []},
		"triggers": []
	}`
	otherNet := `{
		"name": "stellar-monitor", "networks": ["stellar"],
		"match_conditions": {"functions": [], "events": [], "transactions": []},
		"triggers": []
	}`

	root := writeConfigTree(t, nil, map[string]string{
		"active.json": `{
			"name": "active-monitor", "networks": ["ethereum"],
			"match_conditions": {"functions": [], "events": [], "transactions": []},
			"triggers": []
		}`,
		"paused.json": paused,
		"other.json":  otherNet,
	}, nil)

	monitors, err := LoadMonitors(filepath.Join(root, "monitors"))
	require.NoError(t, err)

	t.Run("returns only unpaused monitors targeting the network", func(t *testing.T) {
		active := monitors.ActiveForNetwork("ethereum")

		require.Len(t, active, 1)
		assert.Equal(t, "active-monitor", active[0].Name)
	})

	t.Run("a network nobody watches yields nothing", func(t *testing.T) {
		assert.Empty(t, monitors.ActiveForNetwork("polygon"))
	})
}
