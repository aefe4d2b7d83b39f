// Package payroll turns attendance records into salary figures. A regular
// profile pays a monthly salary minus a per-day deduction for absences past
// a grace allowance; visiting profiles pay either a fixed amount pro-rated
// by working days or a flat per-day rate. Day counting is UTC-calendar based
// and filtered through an injected working-day calendar.
package payroll
