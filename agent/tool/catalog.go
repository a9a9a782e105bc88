package tool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	catalogx "github.com/tanpawarit/vehicle-ai-concierge/agent/catalog"
	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const (
	ToolPartsSearch = "parts.search"
	ToolDealersFind = "dealers.find"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

type PartsSearchOutput struct {
	Count   int                   `json:"count"`
	Results []envelopex.Accessory `json:"results"`
}

type DealersFindOutput struct {
	Count       int                `json:"count"`
	Dealerships []envelopex.Dealer `json:"dealerships"`
	Message     string             `json:"message,omitempty"`
}

// InfosFor returns the tool schemas a capability may call.
func InfosFor(c contractx.Capability) []*schema.ToolInfo {
	switch c {
	case contractx.CapabilityPartsSearch:
		return []*schema.ToolInfo{
			{
				Name: ToolPartsSearch,
				Desc: "Search genuine parts and accessories by keywords, vehicle model and model year.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Keywords describing the part, e.g. floor liners"},
					"model": {Type: schema.String, Desc: "Vehicle model name, e.g. Enclave"},
					"year":  {Type: schema.Integer, Desc: "Vehicle model year, e.g. 2024"},
				}),
			},
		}
	case contractx.CapabilityDealerSearch:
		return []*schema.ToolInfo{
			{
				Name: ToolDealersFind,
				Desc: "Find the closest dealerships to a 5-digit US zip code.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"zip_code": {Type: schema.String, Desc: "5-digit zip code", Required: true},
				}),
			},
		}
	default:
		return nil
	}
}

// NewExecutor runs catalog tools. Unknown tools and bad arguments are
// reported in ToolResult.Error; only backend failures return an error.
func NewExecutor(parts catalogx.PartsCatalog, dealers catalogx.DealerDirectory) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolPartsSearch:
			if parts == nil {
				return unavailable(tool), nil
			}
			q := catalogx.PartsQuery{
				Query: stringArg(args, "query"),
				Model: stringArg(args, "model"),
				Year:  intArg(args, "year"),
			}
			found, err := parts.SearchParts(ctx, q)
			if err != nil {
				return contractx.ToolResult{}, fmt.Errorf("%s: %w", tool, err)
			}
			return contractx.ToolResult{
				Tool:   tool,
				Result: PartsSearchOutput{Count: len(found), Results: found},
			}, nil

		case ToolDealersFind:
			if dealers == nil {
				return unavailable(tool), nil
			}
			zip := stringArg(args, "zip_code")
			if zip == "" {
				return contractx.ToolResult{Tool: tool, Error: "zip_code is required"}, nil
			}
			found, err := dealers.NearestDealers(ctx, zip, catalogx.DefaultDealerLimit)
			if errors.Is(err, catalogx.ErrUnknownZip) {
				return contractx.ToolResult{
					Tool: tool,
					Result: DealersFindOutput{
						Message: fmt.Sprintf("Sorry, I couldn't find location information for the zip code %s.", zip),
					},
				}, nil
			}
			if err != nil {
				return contractx.ToolResult{}, fmt.Errorf("%s: %w", tool, err)
			}
			return contractx.ToolResult{
				Tool:   tool,
				Result: DealersFindOutput{Count: len(found), Dealerships: found},
			}, nil

		default:
			return unavailable(tool), nil
		}
	}
}

func unavailable(tool string) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:  tool,
		Error: fmt.Sprintf("tool=%s is unavailable", tool),
	}
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
