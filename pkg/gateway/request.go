package gateway

import (
	"fmt"
	"math/big"

	"github.com/spf13/pflag"
)

// DeployRequest deploys a smart contract.
type DeployRequest struct {
	// OnTestnet sends the transaction to the test network instead of
	// executing it on the local debug node.
	OnTestnet bool
	// PrivateKey signs the transaction, optional on the local node.
	PrivateKey string
	// SenderAddress is required.
	SenderAddress string
	Value         *big.Int
	GasLimit      uint64
	GasPrice      uint64
	// TransactionData holds the contract code and its deployment
	// arguments.
	TransactionData string
}

// RunRequest calls a function of a deployed contract.
type RunRequest struct {
	DeployRequest
	// ContractAddress is required.
	ContractAddress string
}

// QueryRequest calls a read-only function of a deployed contract.
type QueryRequest struct {
	OnTestnet bool
	// ContractAddress and FunctionName are required.
	ContractAddress string
	FunctionName    string
	Arguments       []string
}

type deployBody struct {
	OnTestnet           bool   `json:"OnTestnet"`
	PrivateKey          string `json:"PrivateKey"`
	TestnetNodeEndpoint string `json:"TestnetNodeEndpoint"`
	SndAddress          string `json:"SndAddress"`
	Value               string `json:"Value"`
	GasLimit            uint64 `json:"GasLimit"`
	GasPrice            uint64 `json:"GasPrice"`
	TxData              string `json:"TxData"`
}

type runBody struct {
	OnTestnet           bool   `json:"OnTestnet"`
	PrivateKey          string `json:"PrivateKey"`
	TestnetNodeEndpoint string `json:"TestnetNodeEndpoint"`
	SndAddress          string `json:"SndAddress"`
	ScAddress           string `json:"ScAddress"`
	Value               string `json:"Value"`
	GasLimit            uint64 `json:"GasLimit"`
	GasPrice            uint64 `json:"GasPrice"`
	TxData              string `json:"TxData"`
}

type queryBody struct {
	OnTestnet           bool     `json:"OnTestnet"`
	TestnetNodeEndpoint string   `json:"TestnetNodeEndpoint"`
	ScAddress           string   `json:"ScAddress"`
	FuncName            string   `json:"FuncName"`
	Args                []string `json:"Args"`
}

func valueString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (r *DeployRequest) validate() error {
	if r.SenderAddress == "" {
		return &RequestError{Field: "sender address"}
	}
	return nil
}

func (r *DeployRequest) body(testnetURL string) *deployBody {
	return &deployBody{
		OnTestnet:           r.OnTestnet,
		PrivateKey:          r.PrivateKey,
		TestnetNodeEndpoint: testnetURL,
		SndAddress:          r.SenderAddress,
		Value:               valueString(r.Value),
		GasLimit:            r.GasLimit,
		GasPrice:            r.GasPrice,
		TxData:              r.TransactionData,
	}
}

func (r *RunRequest) validate() error {
	if err := r.DeployRequest.validate(); err != nil {
		return err
	}
	if r.ContractAddress == "" {
		return &RequestError{Field: "contract address"}
	}
	return nil
}

func (r *RunRequest) body(testnetURL string) *runBody {
	return &runBody{
		OnTestnet:           r.OnTestnet,
		PrivateKey:          r.PrivateKey,
		TestnetNodeEndpoint: testnetURL,
		SndAddress:          r.SenderAddress,
		ScAddress:           r.ContractAddress,
		Value:               valueString(r.Value),
		GasLimit:            r.GasLimit,
		GasPrice:            r.GasPrice,
		TxData:              r.TransactionData,
	}
}

func (r *QueryRequest) validate() error {
	if r.ContractAddress == "" {
		return &RequestError{Field: "contract address"}
	}
	if r.FunctionName == "" {
		return &RequestError{Field: "function name"}
	}
	return nil
}

func (r *QueryRequest) body(testnetURL string) *queryBody {
	args := r.Arguments
	if args == nil {
		args = []string{}
	}
	return &queryBody{
		OnTestnet:           r.OnTestnet,
		TestnetNodeEndpoint: testnetURL,
		ScAddress:           r.ContractAddress,
		FuncName:            r.FunctionName,
		Args:                args,
	}
}

// BindFlags defines the flags filling r on fs.
func (r *DeployRequest) BindFlags(fs *pflag.FlagSet) {
	if r.Value == nil {
		r.Value = new(big.Int)
	}
	fs.BoolVar(&r.OnTestnet, "testnet", false, "Send the transaction to the test network instead of the local debug node.")
	fs.StringVar(&r.PrivateKey, "private-key", "", "Private key signing the transaction.")
	fs.StringVar(&r.SenderAddress, "sender", "", "Address of the sender (required).")
	fs.Var((*bigIntValue)(r.Value), "value", "Value transferred with the transaction.")
	fs.Uint64Var(&r.GasLimit, "gas-limit", 0, "Gas limit.")
	fs.Uint64Var(&r.GasPrice, "gas-price", 0, "Gas price.")
	fs.StringVar(&r.TransactionData, "data", "", "Transaction data.")
}

// BindFlags defines the flags filling r on fs.
func (r *RunRequest) BindFlags(fs *pflag.FlagSet) {
	r.DeployRequest.BindFlags(fs)
	fs.StringVar(&r.ContractAddress, "contract", "", "Address of the contract (required).")
}

// BindFlags defines the flags filling r on fs.
func (r *QueryRequest) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&r.OnTestnet, "testnet", false, "Query the test network instead of the local debug node.")
	fs.StringVar(&r.ContractAddress, "contract", "", "Address of the contract (required).")
	fs.StringVar(&r.FunctionName, "function", "", "Name of the function (required).")
	fs.StringArrayVar(&r.Arguments, "arg", nil, "Function argument, can be repeated.")
}

// bigIntValue is a pflag.Value for unsigned arbitrary precision integers.
type bigIntValue big.Int

func (v *bigIntValue) String() string {
	return (*big.Int)(v).String()
}

func (v *bigIntValue) Set(s string) error {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("invalid value %q", s)
	}
	(*big.Int)(v).Set(n)
	return nil
}

func (v *bigIntValue) Type() string {
	return "integer"
}
