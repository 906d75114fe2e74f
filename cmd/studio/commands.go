package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/agent-studio/internal/domain"
)

// selectCustom loads the roster and activates agentID.
func (a *app) selectCustom(ctx context.Context, agentID string) error {
	if _, err := a.studio.LoadCustomAgents(ctx); err != nil {
		return fmt.Errorf("load custom agents: %w", err)
	}
	return a.studio.SelectCustomAgent(ctx, agentID)
}

func runAccounts(ctx context.Context, a *app, args []string) error {
	if _, err := parseFlags(newFlagSet("accounts"), args); err != nil {
		return err
	}
	accounts, err := a.studio.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(accounts)
}

func runIngest(ctx context.Context, a *app, args []string) error {
	rest, err := parseFlags(newFlagSet("ingest"), args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return usageError("ingest [account-id]")
	}
	accountID := ""
	if len(rest) == 1 {
		accountID = rest[0]
	}
	summary, err := a.studio.Ingest(ctx, accountID)
	if err != nil {
		return err
	}
	a.println("%s", summary.Summary)
	return nil
}

func runAgents(ctx context.Context, a *app, args []string) error {
	const usage = "agents list|get <id>|apply -f <file>|publish <id>|versions <id>|memory <id>"
	if len(args) == 0 {
		return usageError(usage)
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "list":
		if _, err := parseFlags(newFlagSet("agents list"), args); err != nil {
			return err
		}
		agents, err := a.studio.LoadCustomAgents(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(agents)

	case "get":
		id, err := singleArg("agents get", args, "agents get <id>")
		if err != nil {
			return err
		}
		def, err := a.client.GetAgent(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(def)

	case "apply":
		fs := newFlagSet("agents apply")
		file := fs.StringP("file", "f", "", "agent definition YAML")
		if _, err := parseFlags(fs, args); err != nil {
			return err
		}
		if *file == "" {
			return usageError("agents apply -f <file>")
		}
		draft, err := readDraft(*file)
		if err != nil {
			return err
		}
		saved, err := a.studio.SaveAgent(ctx, draft)
		if err != nil {
			return err
		}
		return a.printJSON(saved)

	case "publish":
		id, err := singleArg("agents publish", args, "agents publish <id>")
		if err != nil {
			return err
		}
		def, err := a.studio.PublishAgent(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(def)

	case "versions":
		id, err := singleArg("agents versions", args, "agents versions <id>")
		if err != nil {
			return err
		}
		versions, err := a.studio.ListVersions(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(versions)

	case "memory":
		id, err := singleArg("agents memory", args, "agents memory <id>")
		if err != nil {
			return err
		}
		if err := a.selectCustom(ctx, id); err != nil {
			return err
		}
		entries, err := a.studio.LoadMemory(ctx, "")
		if err != nil {
			return err
		}
		return a.printJSON(entries)
	}
	return usageError(usage)
}

// readDraft decodes an agent definition file. Unknown keys are rejected.
func readDraft(path string) (domain.AgentDraft, error) {
	var draft domain.AgentDraft
	f, err := os.Open(path)
	if err != nil {
		return draft, fmt.Errorf("open agent definition: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&draft); err != nil {
		return draft, fmt.Errorf("parse agent definition %s: %w", path, err)
	}
	return draft, nil
}

// singleArg parses a subcommand that takes exactly one positional argument.
func singleArg(name string, args []string, usage string) (string, error) {
	rest, err := parseFlags(newFlagSet(name), args)
	if err != nil {
		return "", err
	}
	if len(rest) != 1 || rest[0] == "" {
		return "", usageError(usage)
	}
	return rest[0], nil
}

func runTools(ctx context.Context, a *app, args []string) error {
	if _, err := parseFlags(newFlagSet("tools"), args); err != nil {
		return err
	}
	return a.printJSON(a.studio.LoadTools(ctx))
}

func runTrain(ctx context.Context, a *app, args []string) error {
	const usage = "train start <agent-id> [flags] | train list <agent-id>"
	if len(args) == 0 {
		return usageError(usage)
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "start":
		fs := newFlagSet("train start")
		var req domain.TrainingRequest
		fs.StringVar(&req.BaseModelID, "base-model", "", "base model id (default "+domain.DefaultBaseModelID+")")
		fs.StringVar(&req.Provider, "provider", "", "training provider (default "+domain.DefaultTrainingProvider+")")
		fs.BoolVar(&req.DomainAdaptation, "domain-adaptation", false, "run domain adaptation before fine-tuning")
		fs.StringVar(&req.Notes, "notes", "", "free-form notes stored with the job")
		rest, err := parseFlags(fs, args)
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return usageError("train start <agent-id> [flags]")
		}
		if err := a.selectCustom(ctx, rest[0]); err != nil {
			return err
		}
		job, err := a.studio.StartTraining(ctx, req)
		if err != nil {
			return err
		}
		return a.printJSON(job)

	case "list":
		id, err := singleArg("train list", args, "train list <agent-id>")
		if err != nil {
			return err
		}
		if err := a.selectCustom(ctx, id); err != nil {
			return err
		}
		return a.printJSON(a.studio.TrainingJobs())
	}
	return usageError(usage)
}

func runFeedback(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("feedback")
	input := fs.String("input", "", "prompt the agent received")
	output := fs.String("output", "", "response the agent should have given")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return usageError("feedback <agent-id> --input <prompt> --output <response>")
	}
	if err := a.selectCustom(ctx, rest[0]); err != nil {
		return err
	}
	resp, err := a.studio.SubmitFeedback(ctx, *input, *output)
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}

func runBilling(ctx context.Context, a *app, args []string) error {
	const usage = "billing status --user <id> | billing checkout --price <id>"
	if len(args) == 0 {
		return usageError(usage)
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "status":
		fs := newFlagSet("billing status")
		user := fs.String("user", "", "user id")
		if _, err := parseFlags(fs, args); err != nil {
			return err
		}
		if *user == "" {
			return errors.New("--user is required")
		}
		status, err := a.client.SubscriptionStatus(ctx, *user)
		if err != nil {
			return err
		}
		return a.printJSON(status)

	case "checkout":
		fs := newFlagSet("billing checkout")
		price := fs.String("price", "", "price id")
		if _, err := parseFlags(fs, args); err != nil {
			return err
		}
		if *price == "" {
			return errors.New("--price is required")
		}
		session, err := a.client.CreateCheckoutSession(ctx, *price)
		if err != nil {
			return err
		}
		return a.printJSON(session)
	}
	return usageError(usage)
}

func runBlueprints(_ context.Context, a *app, args []string) error {
	if _, err := parseFlags(newFlagSet("blueprints"), args); err != nil {
		return err
	}
	return a.printJSON(domain.Blueprints)
}
