package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WeiDecimals is the number of decimal places between wei and ether.
const WeiDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(WeiDecimals), nil)

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

func AddCommas(s string) string {
	if len(s) == 0 {
		return s
	}
	parts := strings.Split(s, ".")
	integerPart := parts[0]
	sign := ""
	if strings.HasPrefix(integerPart, "-") {
		sign = "-"
		integerPart = integerPart[1:]
	}

	n := len(integerPart)
	if n <= 3 {
		return s
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(integerPart[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < n; i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(integerPart[i : i+3])
	}

	if len(parts) > 1 {
		result.WriteString(".")
		result.WriteString(parts[1])
	}
	return result.String()
}

// DecodeHexQuantity parses a JSON-RPC quantity. Providers sometimes pad
// quantities with leading zeros, which hexutil rejects, so those are stripped.
func DecodeHexQuantity(raw string) (*big.Int, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || (s[:2] != "0x" && s[:2] != "0X") {
		return nil, fmt.Errorf("invalid hex quantity %q: missing 0x prefix", raw)
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		if len(s) == 2 {
			return nil, fmt.Errorf("invalid hex quantity %q: no digits", raw)
		}
		digits = "0"
	}
	v, err := hexutil.DecodeBig("0x" + digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex quantity %q: %w", raw, err)
	}
	return v, nil
}

// FormatBalance converts a hex wei balance into an ether amount with at most
// decimals fraction digits. Trailing zeros are dropped, so one ether renders
// as "1". A non-zero balance below the shown precision keeps its first
// significant digit. Input that is not a hex quantity is returned unchanged.
func FormatBalance(rawHex string, decimals int) string {
	wei, err := DecodeHexQuantity(rawHex)
	if err != nil {
		return rawHex
	}
	if decimals < 0 || decimals > WeiDecimals {
		decimals = WeiDecimals
	}

	whole, frac := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}

	full := frac.String()
	full = strings.Repeat("0", WeiDecimals-len(full)) + full
	fracStr := strings.TrimRight(full[:decimals], "0")
	if fracStr == "" && whole.Sign() == 0 {
		// a dust balance keeps its first significant digit so it never reads as empty
		fracStr = full[:strings.IndexFunc(full, func(r rune) bool { return r != '0' })+1]
	}
	if fracStr == "" {
		return whole.String()
	}
	return whole.String() + "." + fracStr
}

// ParseChainID parses a hex chain identifier as returned by eth_chainId.
func ParseChainID(rawHex string) (*big.Int, error) {
	return DecodeHexQuantity(rawHex)
}

// FormatChainAsNum renders a hex chain identifier in decimal, or "NaN" when
// it cannot be parsed.
func FormatChainAsNum(rawHex string) string {
	id, err := ParseChainID(rawHex)
	if err != nil {
		return "NaN"
	}
	return id.String()
}
