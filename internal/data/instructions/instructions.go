// Package instructions is the AVR mnemonic reference used by hover and
// completion.
package instructions

import "strings"

type Instruction struct {
	Mnemonic string
	Operands string
	Summary  string
}

var table = []Instruction{
	{"add", "Rd, Rr", "Add without carry"},
	{"adc", "Rd, Rr", "Add with carry"},
	{"adiw", "Rd, K", "Add immediate to word"},
	{"sub", "Rd, Rr", "Subtract without carry"},
	{"subi", "Rd, K", "Subtract immediate"},
	{"sbc", "Rd, Rr", "Subtract with carry"},
	{"sbci", "Rd, K", "Subtract immediate with carry"},
	{"sbiw", "Rd, K", "Subtract immediate from word"},
	{"and", "Rd, Rr", "Logical AND"},
	{"andi", "Rd, K", "Logical AND with immediate"},
	{"or", "Rd, Rr", "Logical OR"},
	{"ori", "Rd, K", "Logical OR with immediate"},
	{"eor", "Rd, Rr", "Exclusive OR"},
	{"com", "Rd", "One's complement"},
	{"neg", "Rd", "Two's complement"},
	{"sbr", "Rd, K", "Set bits in register"},
	{"cbr", "Rd, K", "Clear bits in register"},
	{"inc", "Rd", "Increment"},
	{"dec", "Rd", "Decrement"},
	{"tst", "Rd", "Test for zero or minus"},
	{"clr", "Rd", "Clear register"},
	{"ser", "Rd", "Set register"},
	{"mul", "Rd, Rr", "Multiply unsigned"},
	{"muls", "Rd, Rr", "Multiply signed"},
	{"mulsu", "Rd, Rr", "Multiply signed with unsigned"},
	{"fmul", "Rd, Rr", "Fractional multiply unsigned"},
	{"fmuls", "Rd, Rr", "Fractional multiply signed"},
	{"fmulsu", "Rd, Rr", "Fractional multiply signed with unsigned"},
	{"rjmp", "k", "Relative jump"},
	{"ijmp", "", "Indirect jump to (Z)"},
	{"eijmp", "", "Extended indirect jump to (Z)"},
	{"jmp", "k", "Jump"},
	{"rcall", "k", "Relative call subroutine"},
	{"icall", "", "Indirect call to (Z)"},
	{"eicall", "", "Extended indirect call to (Z)"},
	{"call", "k", "Call subroutine"},
	{"ret", "", "Subroutine return"},
	{"reti", "", "Interrupt return"},
	{"cpse", "Rd, Rr", "Compare, skip if equal"},
	{"cp", "Rd, Rr", "Compare"},
	{"cpc", "Rd, Rr", "Compare with carry"},
	{"cpi", "Rd, K", "Compare with immediate"},
	{"sbrc", "Rr, b", "Skip if bit in register cleared"},
	{"sbrs", "Rr, b", "Skip if bit in register set"},
	{"sbic", "A, b", "Skip if bit in I/O register cleared"},
	{"sbis", "A, b", "Skip if bit in I/O register set"},
	{"brbs", "s, k", "Branch if status flag set"},
	{"brbc", "s, k", "Branch if status flag cleared"},
	{"breq", "k", "Branch if equal"},
	{"brne", "k", "Branch if not equal"},
	{"brcs", "k", "Branch if carry set"},
	{"brcc", "k", "Branch if carry cleared"},
	{"brsh", "k", "Branch if same or higher"},
	{"brlo", "k", "Branch if lower"},
	{"brmi", "k", "Branch if minus"},
	{"brpl", "k", "Branch if plus"},
	{"brge", "k", "Branch if greater or equal, signed"},
	{"brlt", "k", "Branch if less than, signed"},
	{"brhs", "k", "Branch if half carry flag set"},
	{"brhc", "k", "Branch if half carry flag cleared"},
	{"brts", "k", "Branch if T flag set"},
	{"brtc", "k", "Branch if T flag cleared"},
	{"brvs", "k", "Branch if overflow flag set"},
	{"brvc", "k", "Branch if overflow flag cleared"},
	{"brie", "k", "Branch if interrupt enabled"},
	{"brid", "k", "Branch if interrupt disabled"},
	{"mov", "Rd, Rr", "Copy register"},
	{"movw", "Rd, Rr", "Copy register pair"},
	{"ldi", "Rd, K", "Load immediate"},
	{"lds", "Rd, k", "Load direct from data space"},
	{"ld", "Rd, X|Y|Z", "Load indirect"},
	{"ldd", "Rd, Y+q|Z+q", "Load indirect with displacement"},
	{"sts", "k, Rr", "Store direct to data space"},
	{"st", "X|Y|Z, Rr", "Store indirect"},
	{"std", "Y+q|Z+q, Rr", "Store indirect with displacement"},
	{"lpm", "Rd, Z", "Load program memory"},
	{"elpm", "Rd, Z", "Extended load program memory"},
	{"spm", "", "Store program memory"},
	{"in", "Rd, A", "In from I/O location"},
	{"out", "A, Rr", "Out to I/O location"},
	{"push", "Rr", "Push register on stack"},
	{"pop", "Rd", "Pop register from stack"},
	{"xch", "Z, Rd", "Exchange"},
	{"las", "Z, Rd", "Load and set"},
	{"lac", "Z, Rd", "Load and clear"},
	{"lat", "Z, Rd", "Load and toggle"},
	{"lsl", "Rd", "Logical shift left"},
	{"lsr", "Rd", "Logical shift right"},
	{"rol", "Rd", "Rotate left through carry"},
	{"ror", "Rd", "Rotate right through carry"},
	{"asr", "Rd", "Arithmetic shift right"},
	{"swap", "Rd", "Swap nibbles"},
	{"sbi", "A, b", "Set bit in I/O register"},
	{"cbi", "A, b", "Clear bit in I/O register"},
	{"bst", "Rr, b", "Bit store from register to T"},
	{"bld", "Rd, b", "Bit load from T to register"},
	{"bset", "s", "Flag set"},
	{"bclr", "s", "Flag clear"},
	{"sec", "", "Set carry"},
	{"clc", "", "Clear carry"},
	{"sen", "", "Set negative flag"},
	{"cln", "", "Clear negative flag"},
	{"sez", "", "Set zero flag"},
	{"clz", "", "Clear zero flag"},
	{"sei", "", "Global interrupt enable"},
	{"cli", "", "Global interrupt disable"},
	{"ses", "", "Set signed test flag"},
	{"cls", "", "Clear signed test flag"},
	{"sev", "", "Set two's complement overflow"},
	{"clv", "", "Clear two's complement overflow"},
	{"set", "", "Set T in SREG"},
	{"clt", "", "Clear T in SREG"},
	{"seh", "", "Set half carry flag in SREG"},
	{"clh", "", "Clear half carry flag in SREG"},
	{"break", "", "Break"},
	{"nop", "", "No operation"},
	{"sleep", "", "Sleep"},
	{"wdr", "", "Watchdog reset"},
	{"des", "K", "Data encryption round"},
}

var byMnemonic = func() map[string]Instruction {
	m := make(map[string]Instruction, len(table))
	for _, ins := range table {
		m[ins.Mnemonic] = ins
	}
	return m
}()

// Lookup finds an instruction by mnemonic, case-insensitively.
func Lookup(mnemonic string) (Instruction, bool) {
	ins, ok := byMnemonic[strings.ToLower(mnemonic)]
	return ins, ok
}

// All returns the table in declaration order.
func All() []Instruction {
	return append([]Instruction(nil), table...)
}

// Usage renders "mnemonic operands".
func (i Instruction) Usage() string {
	if i.Operands == "" {
		return i.Mnemonic
	}
	return i.Mnemonic + " " + i.Operands
}
